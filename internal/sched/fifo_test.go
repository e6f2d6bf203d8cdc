package sched

import (
	"testing"

	"queuedfs/internal/job"
)

func TestFIFO_PreservesArrivalOrder(t *testing.T) {
	f := NewFIFO(4)

	jobs := []job.Job{
		{EstCost: 10, ArrivalMS: 100},
		{EstCost: 11, ArrivalMS: 101},
		{EstCost: 12, ArrivalMS: 102},
	}
	for _, j := range jobs {
		if st := f.Push(j); st != OK {
			t.Fatalf("push: want OK, got %v", st)
		}
	}

	for _, want := range jobs {
		got, st := f.Pop()
		if st != OK {
			t.Fatalf("pop: want OK, got %v", st)
		}
		if got.EstCost != want.EstCost || got.ArrivalMS != want.ArrivalMS {
			t.Fatalf("pop order: want %+v, got %+v", want, got)
		}
	}

	if _, st := f.Pop(); st != Empty {
		t.Fatalf("pop on drained queue: want Empty, got %v", st)
	}
}

func TestFIFO_FullAtCapacity(t *testing.T) {
	f := NewFIFO(2)
	if st := f.Push(job.Job{EstCost: 1}); st != OK {
		t.Fatalf("push 1: %v", st)
	}
	if st := f.Push(job.Job{EstCost: 2}); st != OK {
		t.Fatalf("push 2: %v", st)
	}
	if st := f.Push(job.Job{EstCost: 3}); st != Full {
		t.Fatalf("push 3: want Full, got %v", st)
	}
	if f.Len() != f.Cap() {
		t.Fatalf("len=%d cap=%d, want equal at capacity", f.Len(), f.Cap())
	}
}

func TestFIFO_RoundTripLaw(t *testing.T) {
	f := NewFIFO(8)
	seq := []job.Job{
		{EstCost: 1, ArrivalMS: 1},
		{EstCost: 2, ArrivalMS: 2},
		{EstCost: 3, ArrivalMS: 3},
		{EstCost: 4, ArrivalMS: 4},
	}
	for _, j := range seq {
		if f.Push(j) != OK {
			t.Fatal("push failed within capacity")
		}
	}
	for _, want := range seq {
		got, st := f.Pop()
		if st != OK || got != want {
			t.Fatalf("round trip mismatch: want %+v got %+v (status %v)", want, got, st)
		}
	}
}

func TestFIFO_NonPositiveCapacityClampsToOne(t *testing.T) {
	f := NewFIFO(0)
	if f.Cap() != 1 {
		t.Fatalf("cap=%d, want 1", f.Cap())
	}
}
