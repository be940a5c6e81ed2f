package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/teamconsole/internal/domain"
)

func TestSweepClosesIdleConversations(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	u, _ := repo.CreateUser("a@b.com", "pw", "", "")
	team, _ := repo.SaveTeam(u.UUID, domain.Team{Name: "T"})
	agent, _ := repo.SaveAgent(u.UUID, domain.Agent{TeamID: team.ID, Name: "A"})

	idle, _ := repo.OpenConversation(u.UUID, agent.ID)
	busy, _ := repo.OpenConversation(u.UUID, agent.ID)

	now = now.Add(20 * time.Minute)
	repo.TouchConversation(busy.ID)
	now = now.Add(15 * time.Minute)

	var closed []string
	n := sweepConversations(repo, 30*time.Minute, func(id string) { closed = append(closed, id) })

	if n != 1 || len(closed) != 1 || closed[0] != idle.ID {
		t.Fatalf("Expected only %s closed, got %v", idle.ID, closed)
	}
	if _, _, ok := repo.Conversation(idle.ID); ok {
		t.Error("Expected idle conversation closed")
	}
	if _, _, ok := repo.Conversation(busy.ID); !ok {
		t.Error("Expected busy conversation open")
	}

	if n := sweepConversations(repo, 30*time.Minute, nil); n != 0 {
		t.Errorf("Expected nothing left to sweep, got %d", n)
	}
}

func TestSweeperStopsWithContext(t *testing.T) {
	repo := NewMemoryRepository()
	u, _ := repo.CreateUser("a@b.com", "pw", "", "")
	team, _ := repo.SaveTeam(u.UUID, domain.Team{Name: "T"})
	agent, _ := repo.SaveAgent(u.UUID, domain.Agent{TeamID: team.ID, Name: "A"})
	conv, _ := repo.OpenConversation(u.UUID, agent.ID)

	var mu sync.Mutex
	var closed []string
	var evictions int
	ctx, cancel := context.WithCancel(context.Background())
	startSweeper(ctx, repo, 10*time.Millisecond, time.Nanosecond, func(id string) {
		mu.Lock()
		closed = append(closed, id)
		mu.Unlock()
	}, func() {
		mu.Lock()
		evictions++
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n, e := len(closed), evictions
		mu.Unlock()
		if n == 1 && e > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for sweep")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if closed[0] != conv.ID {
		t.Errorf("Expected %s closed, got %v", conv.ID, closed)
	}
}
