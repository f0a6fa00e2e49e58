package config

type WorkerKeyStruct struct {
	LeaderboardQueue string
}

var WorkerKey = &WorkerKeyStruct{
	LeaderboardQueue: "leaderboard_events_queue",
}
