package events_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/events"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_FanOut(t *testing.T) {
	t.Log("Given the need to fan out events to websocket clients.")
	{
		evts := events.New()

		a := evts.Acquire("a")
		b := evts.Acquire("b")

		t.Logf("\tTest 0:\tWhen an event is sent.")
		{
			evts.Send("viewer: block")

			for _, ch := range []<-chan string{a, b} {
				if got := <-ch; got != "viewer: block" {
					t.Fatalf("\t%s\tTest 0:\tShould deliver the event to every receiver, got %q.", failed, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould deliver the event to every receiver.", success)
		}

		t.Logf("\tTest 1:\tWhen a receiver falls behind.")
		{
			for i := 0; i < 1000; i++ {
				evts.Send("viewer: flood")
			}
			t.Logf("\t%s\tTest 1:\tShould not block the sender.", success)
		}

		t.Logf("\tTest 2:\tWhen receivers go away.")
		{
			if err := evts.Release("a"); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould release the receiver: %v", failed, err)
			}
			if err := evts.Release("a"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould not release the receiver twice.", failed)
			}

			evts.Shutdown()
			if evts.Count() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould remove every receiver.", failed)
			}

			for range b {
			}
			t.Logf("\t%s\tTest 2:\tShould close every channel.", success)
		}
	}
}
