package store

import (
	"context"
	"errors"
	"testing"
)

type fakeCH struct {
	inserts  int
	closed   bool
	closeErr error

	lastTable string
	lastCols  []string
	lastRows  [][]any
}

func (f *fakeCH) Insert(_ context.Context, table string, columns []string, rows [][]any) error {
	f.inserts++
	f.lastTable = table
	f.lastCols = columns
	f.lastRows = rows
	return nil
}

func (f *fakeCH) Query(_ context.Context, _ string, _ ...any) (Rows, error) {
	return newRows(nil, nil), nil
}

func (f *fakeCH) Close() error {
	f.closed = true
	return f.closeErr
}

type fakeTxRunner struct {
	fakeRowQuerier
	closeErr error
	closed   bool
}

func (f *fakeTxRunner) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return fn(&f.fakeRowQuerier)
}

func (f *fakeTxRunner) Close() error {
	f.closed = true
	return f.closeErr
}

func TestOpenNoBackends(t *testing.T) {
	s, err := Open(context.Background(), Config{AppName: "doorman"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("disabled backends must stay nil")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close on empty store: %v", err)
	}
}

func TestCloseJoinsBackendErrors(t *testing.T) {
	pgErr := errors.New("pg close failed")
	chErr := errors.New("ch close failed")
	s := &Store{
		PG: &fakeTxRunner{closeErr: pgErr},
		CH: &fakeCH{closeErr: chErr},
	}
	err := s.Close(context.Background())
	if !errors.Is(err, pgErr) || !errors.Is(err, chErr) {
		t.Fatalf("want both close errors joined, got %v", err)
	}
	if !s.PG.(*fakeTxRunner).closed || !s.CH.(*fakeCH).closed {
		t.Fatalf("both backends must be closed")
	}
}

func TestCloseNilStore(t *testing.T) {
	var s *Store
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("nil store close: %v", err)
	}
}
