package mempool_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name string
		data []string
	}

	tt := []table{
		{name: "basic", data: []string{"first", "second", "third", "fourth"}},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of entries.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					now := time.Now()
					for i, data := range tst.data {
						entry := mempool.NewEntry(data)
						entry.Submitted = now.Add(time.Duration(i) * time.Second)

						if _, err := mp.Upsert(entry); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add entry: %v", failed, testID, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add entries.", success, testID)

					for i, entry := range mp.Copy() {
						if entry.Data != tst.data[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, entry.Data)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.data[i])
							t.Fatalf("\t%s\tTest %d:\tShould get entries in submission order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get entries in submission order.", success, testID)

					oldest, ok := mp.PickOldest()
					if !ok || oldest.Data != tst.data[0] {
						t.Fatalf("\t%s\tTest %d:\tShould pick the oldest entry.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould pick the oldest entry.", success, testID)

					mp.Delete(oldest)
					if mp.Count() != len(tst.data)-1 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove an entry.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove an entry.", success, testID)

					if _, err := mp.Upsert(mempool.NewEntry("")); !errors.Is(err, mempool.ErrEmptyData) {
						t.Fatalf("\t%s\tTest %d:\tShould reject empty data.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject empty data.", success, testID)

					mp.Truncate()
					if _, ok := mp.PickOldest(); ok || mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
