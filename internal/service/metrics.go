package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordchain_games_started_total",
			Help: "Games started",
		},
	)
	gamesFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordchain_games_finished_total",
			Help: "Games finished and persisted",
		},
	)
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordchain_turns_total",
			Help: "Turns by outcome",
		},
		[]string{"outcome"},
	)
	roomsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordchain_rooms_reaped_total",
			Help: "Idle rooms removed by the reaper",
		},
	)
)

func init() {
	prometheus.MustRegister(gamesStarted, gamesFinished, turnsTotal, roomsReaped)
}
