package mutate

import (
	"context"
	"testing"

	"tripsync/pkg/models"
	"tripsync/pkg/neterr"
	"tripsync/pkg/repo"
	"tripsync/pkg/store"
)

// stubPollAPI serves one poll and lets tests fail the vote call.
type stubPollAPI struct {
	poll    models.Poll
	voteErr error
	getErr  error
	votes   int
	unvotes int
}

func (a *stubPollAPI) ListPolls(ctx context.Context, tripID string) ([]models.Poll, error) {
	return []models.Poll{a.poll.Clone()}, nil
}

func (a *stubPollAPI) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	if a.getErr != nil {
		return models.Poll{}, a.getErr
	}
	return a.poll.Clone(), nil
}

func (a *stubPollAPI) CreatePoll(ctx context.Context, p models.Poll) (models.Poll, error) {
	return p, nil
}

func (a *stubPollAPI) DeletePoll(ctx context.Context, id string) error { return nil }

func (a *stubPollAPI) Vote(ctx context.Context, pollID, optionID string) error {
	a.votes++
	if a.voteErr != nil {
		return a.voteErr
	}
	if opt := a.poll.Option(optionID); opt != nil {
		opt.VoteCount++
	}
	a.poll.UserVoteID = optionID
	return nil
}

func (a *stubPollAPI) Unvote(ctx context.Context, pollID, optionID string) error {
	a.unvotes++
	if a.voteErr != nil {
		return a.voteErr
	}
	if opt := a.poll.Option(optionID); opt != nil && opt.VoteCount > 0 {
		opt.VoteCount--
	}
	a.poll.UserVoteID = ""
	return nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func twoOptionPoll() models.Poll {
	return models.Poll{
		ID:       "p1",
		TripID:   "t1",
		Question: "Where to eat?",
		IsActive: true,
		Options: []models.PollOption{
			{ID: "a", PollID: "p1", Text: "Ramen", VoteCount: 3},
			{ID: "b", PollID: "p1", Text: "Tapas", VoteCount: 2},
		},
	}
}

func offline() error {
	return neterr.New(neterr.ConnectionFailure, "gateway", "dial refused")
}

func counts(p models.Poll) (int, int) {
	return p.Option("a").VoteCount, p.Option("b").VoteCount
}

func TestVoteConfirmed(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll()}
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	events, cancel := c.Watch()
	defer cancel()

	if err := c.Vote(context.Background(), "a"); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	// provisional phase must have been visible with the local delta
	prov := <-events
	if prov.Phase != PhaseProvisional {
		t.Fatalf("first observed phase %s", prov.Phase)
	}
	if a, b := counts(prov.Value); a != 4 || b != 2 {
		t.Fatalf("provisional counts a=%d b=%d", a, b)
	}
	if prov.Value.UserVoteID != "a" {
		t.Fatalf("provisional vote mark %q", prov.Value.UserVoteID)
	}

	cur := c.Current()
	if cur.Phase != PhaseConfirmed {
		t.Fatalf("final phase %s", cur.Phase)
	}
	if a, b := counts(cur.Value); a != 4 || b != 2 {
		t.Fatalf("confirmed counts a=%d b=%d", a, b)
	}
}

func TestVoteRolledBack(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll(), voteErr: offline()}
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	err := c.Vote(context.Background(), "a")
	if !neterr.Retryable(err) {
		t.Fatalf("vote error classified %v", neterr.KindOf(err))
	}

	cur := c.Current()
	if cur.Phase != PhaseRolledBack {
		t.Fatalf("phase after failed vote %s", cur.Phase)
	}
	if a, b := counts(cur.Value); a != 3 || b != 2 {
		t.Fatalf("rollback counts a=%d b=%d", a, b)
	}
	if cur.Value.UserVoteID != "" {
		t.Fatalf("vote mark survived rollback: %q", cur.Value.UserVoteID)
	}
}

func TestVoteConfirmFetchFailureStaysProvisional(t *testing.T) {
	// vote accepted, but the authoritative re-read fails: callers must
	// still see the value as a guess, not a confirmed state
	api := &stubPollAPI{poll: twoOptionPoll(), getErr: offline()}
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	if err := c.Vote(context.Background(), "a"); err != nil {
		t.Fatalf("accepted vote reported error: %v", err)
	}
	cur := c.Current()
	if cur.Phase != PhaseProvisional {
		t.Fatalf("phase %s, want provisional until the next refresh", cur.Phase)
	}
	if a, b := counts(cur.Value); a != 4 || b != 2 {
		t.Fatalf("counts a=%d b=%d", a, b)
	}
	if cur.Value.UserVoteID != "a" {
		t.Fatalf("vote mark %q", cur.Value.UserVoteID)
	}
}

func TestVoteNonRetryableSettlesOnServerTruth(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll(), voteErr: neterr.New(neterr.ServerError, "gateway", "boom")}
	// the server's list is what the post-rollback refresh installs
	api.poll.Option("b").VoteCount = 9
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	if err := c.Vote(context.Background(), "a"); err == nil {
		t.Fatalf("expected error")
	}
	cur := c.Current()
	if cur.Phase != PhaseIdle {
		t.Fatalf("phase after refresh %s", cur.Phase)
	}
	if a, b := counts(cur.Value); a != 3 || b != 9 {
		t.Fatalf("refreshed counts a=%d b=%d", a, b)
	}
}

func TestDuplicateVoteRejected(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll()}
	initial := twoOptionPoll()
	initial.UserVoteID = "b"
	c := NewPollController(repo.NewPolls(openStore(t), api), initial)

	err := c.Vote(context.Background(), "a")
	if neterr.KindOf(err) != neterr.ValidationFailure {
		t.Fatalf("duplicate vote classified %v", neterr.KindOf(err))
	}
	if api.votes != 0 {
		t.Fatalf("rejected vote reached the network")
	}
	if cur := c.Current(); cur.Phase != PhaseIdle {
		t.Fatalf("rejected vote moved the machine to %s", cur.Phase)
	}
}

func TestUnknownOptionRejected(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll()}
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	err := c.Vote(context.Background(), "nope")
	if neterr.KindOf(err) != neterr.ValidationFailure {
		t.Fatalf("unknown option classified %v", neterr.KindOf(err))
	}
	if api.votes != 0 {
		t.Fatalf("rejected vote reached the network")
	}
}

func TestUnvoteInverseDelta(t *testing.T) {
	base := twoOptionPoll()
	base.Option("a").VoteCount = 4
	base.UserVoteID = "a"
	api := &stubPollAPI{poll: base.Clone()}
	api.poll.Option("a").VoteCount = 3
	api.poll.UserVoteID = ""
	c := NewPollController(repo.NewPolls(openStore(t), api), base)

	if err := c.Unvote(context.Background()); err != nil {
		t.Fatalf("Unvote: %v", err)
	}
	cur := c.Current()
	if cur.Phase != PhaseConfirmed {
		t.Fatalf("phase %s", cur.Phase)
	}
	if a, _ := counts(cur.Value); a != 3 {
		t.Fatalf("count after unvote a=%d", a)
	}
	if cur.Value.UserVoteID != "" {
		t.Fatalf("vote mark survived unvote")
	}
}

// blockingPollAPI parks Vote calls until released so a newer intent can
// overtake an in-flight one.
type blockingPollAPI struct {
	stubPollAPI
	entered chan struct{}
	release chan error
}

func (a *blockingPollAPI) Vote(ctx context.Context, pollID, optionID string) error {
	a.entered <- struct{}{}
	return <-a.release
}

func (a *blockingPollAPI) Unvote(ctx context.Context, pollID, optionID string) error {
	return nil
}

func TestSupersededVoteNeverOverridesNewerIntent(t *testing.T) {
	api := &blockingPollAPI{
		stubPollAPI: stubPollAPI{poll: twoOptionPoll()},
		entered:     make(chan struct{}),
		release:     make(chan error),
	}
	blocked := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())

	done := make(chan error, 1)
	go func() { done <- blocked.Vote(context.Background(), "a") }()
	<-api.entered

	// a newer intent lands while the vote is still in flight
	if err := blocked.Unvote(context.Background()); err != nil {
		t.Fatalf("Unvote: %v", err)
	}
	after := blocked.Current()

	// the old vote now fails; its rollback is stale and must not win
	api.release <- offline()
	if err := <-done; err == nil {
		t.Fatalf("expected vote error")
	}

	cur := blocked.Current()
	if cur.Gen != after.Gen || cur.Phase != after.Phase {
		t.Fatalf("stale rollback overrode newer state: %+v vs %+v", cur, after)
	}
	if a, b := counts(cur.Value); a != 3 || b != 2 {
		t.Fatalf("counts after supersede a=%d b=%d", a, b)
	}
	if cur.Value.UserVoteID != "" {
		t.Fatalf("vote mark after supersede: %q", cur.Value.UserVoteID)
	}
}

func TestUnvoteWithoutVoteRejected(t *testing.T) {
	api := &stubPollAPI{poll: twoOptionPoll()}
	c := NewPollController(repo.NewPolls(openStore(t), api), twoOptionPoll())
	if err := c.Unvote(context.Background()); neterr.KindOf(err) != neterr.ValidationFailure {
		t.Fatalf("classified %v", neterr.KindOf(err))
	}
	if api.unvotes != 0 {
		t.Fatalf("rejected unvote reached the network")
	}
}
