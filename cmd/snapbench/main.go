// snapbench runs concurrent mutators against a table while a
// snapshot scan runs over it, reporting throughput and an error if
// the scan did not emit exactly as many rows as were preloaded before
// activation (a count check; individual rows are not compared).
// Grounded on cmd/bench/main.go and
// cmd/bench/test_insert.go's Parallel-workers-and-report shape, but
// operating directly on table.Table rather than over HTTP, since the
// property under test — every tuple the table held at activation
// shows up exactly once — is an in-process engine invariant (spec.md
// §8's completeness property), not an API contract.
package main

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/snaptable/snapshot"
	"github.com/fulldump/snaptable/table"
)

type Config struct {
	N         int64 `usage:"number of rows preloaded before the scan starts"`
	Workers   int   `usage:"number of concurrent mutator goroutines"`
	Mutations int64 `usage:"number of insert/update/delete ops performed during the scan"`
}

func parallel(workers int, f func()) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

func main() {

	c := Config{
		N:         100_000,
		Workers:   8,
		Mutations: 50_000,
	}
	goconfig.Read(&c)

	t := table.NewTable("bench", 256)

	fmt.Println("preloading", c.N, "rows")
	for i := int64(0); i < c.N; i++ {
		_, err := t.Insert([]byte(`{"n":` + strconv.FormatInt(i, 10) + `}`))
		if err != nil {
			fmt.Println("ERROR: preload insert:", err.Error())
			return
		}
	}

	surgeon := table.NewSurgeon(t)
	scan := snapshot.NewContext(t, surgeon, int64(t.ActiveTupleCount()))
	if err := scan.Activate(); err != nil {
		fmt.Println("ERROR: activate:", err.Error())
		return
	}

	var mutationsDone int64
	var scanDone sync.WaitGroup
	scanDone.Add(1)

	t0 := time.Now()

	go func() {
		defer scanDone.Done()
		var emitted int64
		for {
			tup, ok := scan.Advance()
			if !ok {
				break
			}
			emitted++
			scan.CleanupTuple(tup, false)
		}
		fmt.Println("scan emitted:", emitted, "in", time.Since(t0))
		if emitted != c.N {
			fmt.Println("ERROR: scan emitted", emitted, "rows, expected", c.N)
		}
		if err := scan.Err(); err != nil {
			fmt.Println("ERROR:", err.Error())
		}
	}()

	parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&mutationsDone, 1)
			if n > c.Mutations {
				return
			}
			tup, err := t.Insert([]byte(`{"mut":` + strconv.FormatInt(n, 10) + `}`))
			if err != nil {
				continue
			}
			t.Update(tup, []byte(`{"mut":`+strconv.FormatInt(n, 10)+`,"touched":true}`))
			t.Delete(tup)
		}
	})

	scanDone.Wait()
	fmt.Println("took:", time.Since(t0))
}
