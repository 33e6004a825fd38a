package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/wfunc/minesweeper/models"
	"github.com/wfunc/minesweeper/persistence"
	"github.com/wfunc/minesweeper/services"
)

func TestGameService_GetPlayerStats(t *testing.T) {
	stats := services.NewStatsService(persistence.NewMemory())
	err := stats.RecordGame(context.Background(), &models.GameRecord{
		Player:     "alice",
		Outcome:    models.OutcomeWon,
		FinishedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordGame failed: %v", err)
	}

	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Register(NewGameService(stats)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	go srv.Start()
	defer srv.Stop()

	client, err := rpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	var reply GetPlayerStatsReply
	if err := client.Call("GameService.GetPlayerStats", &GetPlayerStatsArgs{Player: "alice"}, &reply); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.Stats.Wins != 1 || reply.Stats.TotalGames != 1 {
		t.Errorf("unexpected stats %+v", reply.Stats)
	}
}
