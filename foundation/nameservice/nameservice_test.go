package nameservice_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Names(t *testing.T) {
	t.Log("Given the need to name nodes by their key files.")
	{
		folder := t.TempDir()

		t.Logf("\tTest 0:\tWhen a key doesn't exist yet.")
		{
			key, err := nameservice.LoadOrGenerateKey(folder, "miner1")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould generate the key: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould generate the key.", success)

			again, err := nameservice.LoadOrGenerateKey(folder, "miner1")
			if err != nil || nameservice.NodeID(again) != nameservice.NodeID(key) {
				t.Fatalf("\t%s\tTest 0:\tShould load the same key the second time: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould load the same key the second time.", success)

			ns, err := nameservice.New(folder)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould load the name service: %v", failed, err)
			}

			if name := ns.Lookup(nameservice.NodeID(key)); name != "miner1" {
				t.Fatalf("\t%s\tTest 0:\tShould name the node after its key file, got %q.", failed, name)
			}
			t.Logf("\t%s\tTest 0:\tShould name the node after its key file.", success)

			if name := ns.Lookup("0x00"); name != "0x00" {
				t.Fatalf("\t%s\tTest 0:\tShould return unknown ids unchanged.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould return unknown ids unchanged.", success)
		}
	}
}
