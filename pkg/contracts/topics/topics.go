package topics

const (
	// Wagers
	WagerSettled = "wager_settled"

	// Redis Pub/Sub
	WinsBroadcast = "wins_broadcast"
)
