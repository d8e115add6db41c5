package memory

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	total, err := s.Add(context.Background(), 5)
	if err != nil || total != 5 {
		t.Fatalf("got %v %v", total, err)
	}
	total, err = s.Add(context.Background(), 2.5)
	if err != nil || total != 7.5 {
		t.Fatalf("got %v %v", total, err)
	}
	if _, err := s.Add(context.Background(), -1); err == nil {
		t.Fatal("expected negative delta to be rejected")
	}
	got, _ := s.Total(context.Background())
	if got != 7.5 || s.Checks() != 2 {
		t.Fatalf("total=%v checks=%d", got, s.Checks())
	}
}

func TestMemoryStoreConcurrentAdds(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(context.Background(), 1)
		}()
	}
	wg.Wait()
	if got, _ := s.Total(context.Background()); got != 100 {
		t.Fatalf("want 100 got %v", got)
	}
}
