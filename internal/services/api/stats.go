package api

import (
	"context"
	"net/http"

	perr "doorman/internal/platform/errors"
	phttp "doorman/internal/platform/net/http"
)

// ActionCount is one (chat, action) tally from the decision log
type ActionCount struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
	Count  uint64 `json:"count"`
}

const statsQuery = `
SELECT chat_id, action, count() AS n
FROM moderation_decisions
GROUP BY chat_id, action
ORDER BY chat_id, action`

const chatStatsQuery = `
SELECT chat_id, action, count() AS n
FROM moderation_decisions
WHERE chat_id = ?
GROUP BY chat_id, action
ORDER BY action`

func (a *api) queryCounts(ctx context.Context, query string, args ...any) ([]ActionCount, error) {
	if a.ch == nil {
		return nil, perr.Unavailablef("decision log not configured")
	}
	rows, err := a.ch.Query(ctx, query, args...)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "stats query failed")
	}
	defer rows.Close()

	out := []ActionCount{}
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.ChatID, &c.Action, &c.Count); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeDB, "stats scan failed")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "stats rows failed")
	}
	return out, nil
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.queryCounts(r.Context(), statsQuery)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, counts)
}

func (a *api) chatStats(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathID(r, "chatID")
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	counts, err := a.queryCounts(r.Context(), chatStatsQuery, chatID)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, counts)
}
