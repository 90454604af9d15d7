package mutate

import "testing"

func TestSettleRequiresCurrentGeneration(t *testing.T) {
	s := NewState(0)
	g1 := s.begin(1)
	g2 := s.begin(2)

	// the older call resolving late must not override the newer guess
	if s.settle(g1, PhaseConfirmed, 100) {
		t.Fatalf("stale settle applied")
	}
	if cur := s.Get(); cur.Value != 2 || cur.Phase != PhaseProvisional {
		t.Fatalf("stale settle changed state: %+v", cur)
	}

	if !s.settle(g2, PhaseConfirmed, 200) {
		t.Fatalf("current settle refused")
	}
	if cur := s.Get(); cur.Value != 200 || cur.Phase != PhaseConfirmed {
		t.Fatalf("after settle: %+v", cur)
	}
}

func TestRefreshBumpsGeneration(t *testing.T) {
	s := NewState(0)
	gen := s.begin(1)
	s.refresh(42)
	if s.settle(gen, PhaseConfirmed, 99) {
		t.Fatalf("settle applied across a refresh")
	}
	if cur := s.Get(); cur.Value != 42 || cur.Phase != PhaseIdle {
		t.Fatalf("after refresh: %+v", cur)
	}
}

func TestAmendMergesButKeepsNewerPhase(t *testing.T) {
	s := NewState([]string{"a"})
	g1 := s.begin([]string{"a", "b"})
	s.begin([]string{"a", "b", "c"})

	// stale amend: the value merge lands, the phase does not change
	s.amend(g1, PhaseConfirmed, func(v []string) []string {
		return append(v, "late")
	})
	cur := s.Get()
	if cur.Phase != PhaseProvisional {
		t.Fatalf("stale amend took the phase: %s", cur.Phase)
	}
	if len(cur.Value) != 4 || cur.Value[3] != "late" {
		t.Fatalf("stale amend dropped the merge: %v", cur.Value)
	}
}

func TestWatchDeliversLatestUnderBackpressure(t *testing.T) {
	s := NewState(0)
	ch, cancel := s.Watch()
	defer cancel()

	// overflow the buffer without draining
	for i := 1; i <= 40; i++ {
		s.begin(i)
	}

	var last Snapshot[int]
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed")
			}
			last = snap
			continue
		default:
		}
		break
	}
	if last.Value != 40 {
		t.Fatalf("latest snapshot lost under backpressure: got %d", last.Value)
	}
}

func TestWatchCancelIdempotent(t *testing.T) {
	s := NewState(0)
	ch, cancel := s.Watch()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel open after cancel")
	}
	// updates after cancel must not panic
	s.begin(1)
}

func TestPhaseStrings(t *testing.T) {
	cases := map[Phase]string{
		PhaseIdle:        "idle",
		PhaseProvisional: "provisional",
		PhaseConfirmed:   "confirmed",
		PhaseRolledBack:  "rolled_back",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Fatalf("%d.String() = %q", phase, got)
		}
	}
}
