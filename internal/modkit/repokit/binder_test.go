package repokit

import (
	"context"
	"testing"

	"doorman/internal/platform/store"
	"doorman/internal/platform/testkit"
)

type stubQueryer struct{}

func (stubQueryer) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, nil
}
func (stubQueryer) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (stubQueryer) QueryRow(context.Context, string, ...any) store.Row        { return nil }

type countRepo struct{ q Queryer }

func TestBindFunc(t *testing.T) {
	b := BindFunc[countRepo](func(q Queryer) countRepo { return countRepo{q: q} })
	q := stubQueryer{}
	r := b.Bind(q)
	if r.q == nil {
		t.Fatalf("binder did not capture queryer")
	}
}

func TestMustBindPanicsOnNil(t *testing.T) {
	b := BindFunc[countRepo](func(q Queryer) countRepo { return countRepo{q: q} })
	testkit.MustPanic(t, func() {
		MustBind[countRepo](b, nil)
	})
}

func TestMustPingNilPanics(t *testing.T) {
	testkit.MustPanic(t, func() {
		MustPing(context.Background(), "pg", nil)
	})
}
