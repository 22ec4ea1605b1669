package repo

import "sort"

// BestPerAccount aplica em memória a mesma regra da consulta SQL do leaderboard:
// por conta, a aposta vencedora de maior payout; empate fica com o menor id.
// Resultado ordenado por payout desc, id asc e truncado em limit (limit <= 0 não trunca).
func BestPerAccount(wagers []Wager, limit int) []Wager {
	best := make(map[int64]Wager)
	for _, w := range wagers {
		if !w.Won {
			continue
		}
		cur, ok := best[w.AccountID]
		switch {
		case !ok, w.Payout.GreaterThan(cur.Payout):
			best[w.AccountID] = w
		case w.Payout.Equal(cur.Payout) && w.ID < cur.ID:
			best[w.AccountID] = w
		}
	}

	out := make([]Wager, 0, len(best))
	for _, w := range best {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Payout.Cmp(out[j].Payout); c != 0 {
			return c > 0
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
