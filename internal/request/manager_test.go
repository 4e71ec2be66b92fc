package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/intent"
)

// mockRepository is an in-memory Repository with the same CAS
// semantics as the SQLite implementation.
type mockRepository struct {
	mu       sync.Mutex
	requests map[string]*Request
	history  []HistoryEntry

	failHistory bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{requests: make(map[string]*Request)}
}

func (m *mockRepository) Create(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := *req
	m.requests[req.ID] = &cpy
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cpy := *req
	return &cpy, nil
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, req := range m.requests {
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if req.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *mockRepository) transition(id string, from []Status, apply func(*Request)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	for _, s := range from {
		if req.Status == s {
			apply(req)
			return nil
		}
	}
	return ErrInvalidTransition
}

func (m *mockRepository) Assign(_ context.Context, id, crewID, crewName string, _ time.Time) error {
	return m.transition(id, []Status{StatusPending}, func(req *Request) {
		req.AssignedCrewID = &crewID
		req.AssignedCrewName = &crewName
	})
}

func (m *mockRepository) Accept(_ context.Context, id, crewID, crewName string, at time.Time) error {
	return m.transition(id, []Status{StatusPending}, func(req *Request) {
		req.Status = StatusServing
		req.AcceptedAt = &at
		req.AssignedCrewID = &crewID
		req.AssignedCrewName = &crewName
	})
}

func (m *mockRepository) Complete(_ context.Context, id string, at time.Time) error {
	return m.transition(id, []Status{StatusServing}, func(req *Request) {
		req.Status = StatusCompleted
		req.CompletedAt = &at
	})
}

func (m *mockRepository) Cancel(_ context.Context, id, reason string, at time.Time) error {
	return m.transition(id, []Status{StatusPending, StatusServing}, func(req *Request) {
		req.Status = StatusCancelled
		req.CancelledAt = &at
		req.CancelReason = &reason
	})
}

func (m *mockRepository) AddHistory(_ context.Context, entry *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHistory {
		return errors.New("history store down")
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockRepository) ListHistory(_ context.Context, requestID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryEntry
	for _, entry := range m.history {
		if entry.RequestID == requestID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// mockDirectory implements directory.Repository for testing.
type mockDirectory struct {
	guests map[string]*directory.Guest // keyed by location id
	crew   map[string]*directory.CrewMember
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		guests: make(map[string]*directory.Guest),
		crew:   make(map[string]*directory.CrewMember),
	}
}

func (m *mockDirectory) GetLocation(context.Context, string) (*directory.Location, error) {
	return nil, directory.ErrLocationNotFound
}

func (m *mockDirectory) ListLocations(context.Context) ([]directory.Location, error) {
	return nil, nil
}

func (m *mockDirectory) GetGuest(context.Context, string) (*directory.Guest, error) {
	return nil, directory.ErrGuestNotFound
}

func (m *mockDirectory) GuestAtLocation(_ context.Context, locationID string) (*directory.Guest, error) {
	guest, ok := m.guests[locationID]
	if !ok {
		return nil, directory.ErrGuestNotFound
	}
	return guest, nil
}

func (m *mockDirectory) GetCrewMember(_ context.Context, id string) (*directory.CrewMember, error) {
	crew, ok := m.crew[id]
	if !ok {
		return nil, directory.ErrCrewMemberNotFound
	}
	return crew, nil
}

func (m *mockDirectory) ListCrew(context.Context) ([]directory.CrewMember, error) {
	return nil, nil
}

func (m *mockDirectory) OnDutyCrew(context.Context) ([]directory.CrewMember, error) {
	return nil, nil
}

func (m *mockDirectory) ToggleDoNotDisturb(context.Context, string) (bool, error) {
	return false, nil
}

func newTestManager() (*Manager, *mockRepository, *mockDirectory) {
	repo := newMockRepository()
	dir := newMockDirectory()
	dir.crew["crew-a"] = &directory.CrewMember{ID: "crew-a", FirstName: "Jonas", LastName: "Berg"}
	dir.crew["crew-b"] = &directory.CrewMember{ID: "crew-b", FirstName: "Mila", LastName: "Costa"}
	return NewManager(repo, dir), repo, dir
}

func TestCreateResolvesGuestAtLocation(t *testing.T) {
	manager, _, dir := newTestManager()
	dir.guests["loc-master"] = &directory.Guest{ID: "guest-1", FirstName: "Amelia", LastName: "Hart", Onboard: true}

	req, err := manager.Create(context.Background(), CreateParams{
		Category:   intent.CategoryNormalCall,
		Priority:   intent.PriorityNormal,
		LocationID: "loc-master",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if req.Status != StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if req.GuestID == nil || *req.GuestID != "guest-1" {
		t.Errorf("guest = %v, want guest-1 auto-attached", req.GuestID)
	}
	if req.CreatedAt.IsZero() {
		t.Error("created timestamp not set")
	}
}

func TestCreateAnonymousWithoutGuest(t *testing.T) {
	manager, _, _ := newTestManager()

	req, err := manager.Create(context.Background(), CreateParams{
		Category:   intent.CategoryNormalCall,
		Priority:   intent.PriorityNormal,
		LocationID: "loc-empty",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.GuestID != nil {
		t.Errorf("guest = %v, want nil (anonymous)", req.GuestID)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	manager, repo, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{
		Category: intent.CategoryNormalCall,
		Priority: intent.PriorityNormal,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	accepted, err := manager.Accept(ctx, req.ID, "crew-a")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != StatusServing {
		t.Errorf("status after accept = %q, want serving", accepted.Status)
	}
	if accepted.AcceptedAt == nil {
		t.Error("acceptedAt not set")
	}
	if accepted.AssignedCrewName == nil || *accepted.AssignedCrewName != "Jonas Berg" {
		t.Errorf("crew name = %v, want Jonas Berg", accepted.AssignedCrewName)
	}

	completed, err := manager.Complete(ctx, req.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("status after complete = %q, want completed", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("completedAt not set")
	}

	// Exactly one history record with action completed, carrying
	// numeric timing metrics.
	history, err := manager.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var completions []HistoryEntry
	for _, entry := range history {
		if entry.Action == ActionCompleted {
			completions = append(completions, entry)
		}
	}
	if len(completions) != 1 {
		t.Fatalf("completed history records = %d, want 1", len(completions))
	}
	details := completions[0].Details
	response, ok := details[DetailResponseSeconds].(float64)
	if !ok {
		t.Fatalf("response_seconds missing or non-numeric: %v", details)
	}
	completion, ok := details[DetailCompletionSeconds].(float64)
	if !ok {
		t.Fatalf("completion_seconds missing or non-numeric: %v", details)
	}
	if response < 0 || completion < 0 {
		t.Errorf("negative timing metrics: response=%v completion=%v", response, completion)
	}
	if _, faulted := details[DetailClockFault]; faulted {
		t.Error("clock fault flagged on healthy timings")
	}

	_ = repo
}

func TestAcceptOnTerminalConflicts(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := manager.Accept(ctx, req.ID, "crew-a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := manager.Complete(ctx, req.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if _, err := manager.Accept(ctx, req.ID, "crew-b"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Accept on completed = %v, want ErrInvalidTransition", err)
	}
	if _, err := manager.Complete(ctx, req.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete on completed = %v, want ErrInvalidTransition", err)
	}
	if _, err := manager.Cancel(ctx, req.ID, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Cancel on completed = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteRequiresServing(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := manager.Complete(ctx, req.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete on pending = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionOnUnknownRequest(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	if _, err := manager.Accept(ctx, "nope", "crew-a"); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("Accept unknown = %v, want ErrRequestNotFound", err)
	}
	if _, err := manager.Cancel(ctx, "nope", ""); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("Cancel unknown = %v, want ErrRequestNotFound", err)
	}
}

func TestAssignThenAcceptLastWins(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryUrgentCall, Priority: intent.PriorityUrgent})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	assigned, err := manager.Assign(ctx, req.ID, "crew-a")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.Status != StatusPending {
		t.Errorf("status after assign = %q, want pending (assign does not transition)", assigned.Status)
	}
	if assigned.AssignedCrewID == nil || *assigned.AssignedCrewID != "crew-a" {
		t.Errorf("assignment = %v, want crew-a", assigned.AssignedCrewID)
	}

	// A different crew member accepts; their assignment wins.
	accepted, err := manager.Accept(ctx, req.ID, "crew-b")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.AssignedCrewID == nil || *accepted.AssignedCrewID != "crew-b" {
		t.Errorf("assignment after accept = %v, want crew-b", accepted.AssignedCrewID)
	}
	if accepted.AssignedCrewName == nil || *accepted.AssignedCrewName != "Mila Costa" {
		t.Errorf("crew name after accept = %v, want Mila Costa", accepted.AssignedCrewName)
	}
}

func TestAssignRequiresCrewMember(t *testing.T) {
	manager, _, _ := newTestManager()

	if _, err := manager.Assign(context.Background(), "any", ""); !errors.Is(err, ErrCrewMemberRequired) {
		t.Errorf("Assign without crew = %v, want ErrCrewMemberRequired", err)
	}
	if _, err := manager.Accept(context.Background(), "any", ""); !errors.Is(err, ErrCrewMemberRequired) {
		t.Errorf("Accept without crew = %v, want ErrCrewMemberRequired", err)
	}
}

func TestAcceptUnknownCrewMember(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := manager.Accept(ctx, req.ID, "crew-ghost"); !errors.Is(err, directory.ErrCrewMemberNotFound) {
		t.Errorf("Accept with unknown crew = %v, want ErrCrewMemberNotFound", err)
	}

	// Request must be untouched.
	got, err := manager.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPending || got.AssignedCrewID != nil {
		t.Errorf("request mutated by failed accept: status=%q assignment=%v", got.Status, got.AssignedCrewID)
	}
}

func TestCancelFromServing(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := manager.Accept(ctx, req.ID, "crew-a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	cancelled, err := manager.Cancel(ctx, req.ID, "guest withdrew")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Error("cancelledAt not set")
	}
	if cancelled.CompletedAt != nil {
		t.Error("completedAt set on cancelled request")
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "guest withdrew" {
		t.Errorf("reason = %v, want guest withdrew", cancelled.CancelReason)
	}
}

func TestClockFaultFlaggedNotClamped(t *testing.T) {
	manager, repo, _ := newTestManager()
	ctx := context.Background()

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := manager.Accept(ctx, req.ID, "crew-a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Corrupt the accepted timestamp to be far in the future, forcing a
	// negative completion time.
	repo.mu.Lock()
	future := time.Now().Add(time.Hour)
	repo.requests[req.ID].AcceptedAt = &future
	repo.mu.Unlock()

	completed, err := manager.Complete(ctx, req.ID)
	if err != nil {
		t.Fatalf("Complete must succeed despite clock fault: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}

	history, err := manager.History(ctx, req.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var found bool
	for _, entry := range history {
		if entry.Action != ActionCompleted {
			continue
		}
		found = true
		if faulted, _ := entry.Details[DetailClockFault].(bool); !faulted {
			t.Errorf("clock fault not flagged in details: %v", entry.Details)
		}
		if completion, _ := entry.Details[DetailCompletionSeconds].(float64); completion >= 0 {
			t.Errorf("completion_seconds = %v, expected the raw negative value", completion)
		}
	}
	if !found {
		t.Fatal("no completed history record")
	}
}

func TestHooksFireOnTransitions(t *testing.T) {
	manager, _, _ := newTestManager()
	ctx := context.Background()

	var mu sync.Mutex
	var actions []Action
	manager.OnTransition(func(_ *Request, action Action) {
		mu.Lock()
		actions = append(actions, action)
		mu.Unlock()
	})

	req, err := manager.Create(ctx, CreateParams{Category: intent.CategoryNormalCall, Priority: intent.PriorityNormal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := manager.Accept(ctx, req.ID, "crew-a"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := manager.Complete(ctx, req.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	want := []Action{ActionCreated, ActionAccepted, ActionCompleted}
	mu.Lock()
	defer mu.Unlock()
	if len(actions) != len(want) {
		t.Fatalf("hook actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("hook action[%d] = %q, want %q", i, actions[i], want[i])
		}
	}
}

func TestHookPanicContained(t *testing.T) {
	manager, _, _ := newTestManager()

	manager.OnTransition(func(*Request, Action) {
		panic("hook exploded")
	})

	// Must not propagate the panic.
	if _, err := manager.Create(context.Background(), CreateParams{
		Category: intent.CategoryNormalCall,
		Priority: intent.PriorityNormal,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestHistoryFailureDoesNotFailTransition(t *testing.T) {
	manager, repo, _ := newTestManager()
	repo.failHistory = true

	req, err := manager.Create(context.Background(), CreateParams{
		Category: intent.CategoryNormalCall,
		Priority: intent.PriorityNormal,
	})
	if err != nil {
		t.Fatalf("Create must succeed when history store is down: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
}
