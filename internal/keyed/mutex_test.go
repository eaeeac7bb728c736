package keyed

import (
	"sync"
	"testing"
)

func held(k *Mutex) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func TestMutexSerializesSameKey(t *testing.T) {
	var (
		k       Mutex
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if n := held(&k); n != 0 {
		t.Fatalf("held = %d after release", n)
	}
}

func TestMutexIndependentKeys(t *testing.T) {
	var k Mutex
	unlockA := k.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := k.Lock(2)
		unlock()
		close(done)
	}()
	<-done
	if n := held(&k); n != 1 {
		t.Fatalf("held = %d, want 1", n)
	}
	unlockA()
}
