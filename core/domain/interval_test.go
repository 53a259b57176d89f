package domain

import "testing"

func TestCompatibleInstancesMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []EventInstance
		want []EventInstance
	}{
		{
			name: "no_overlap",
			in: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 20, EndTS: 30, Busy: true},
			},
			want: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 20, EndTS: 30, Busy: true},
			},
		},
		{
			name: "overlap_without_extending",
			in: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 5, EndTS: 8, Busy: true},
			},
			want: []EventInstance{{StartTS: 0, EndTS: 10, Busy: true}},
		},
		{
			name: "overlap_with_extending",
			in: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 5, EndTS: 20, Busy: true},
			},
			want: []EventInstance{{StartTS: 0, EndTS: 20, Busy: true}},
		},
		{
			name: "six_interval_merge_chain",
			in: []EventInstance{
				{StartTS: 50, EndTS: 60, Busy: true},
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 10, EndTS: 15, Busy: true},
				{StartTS: 30, EndTS: 40, Busy: true},
				{StartTS: 14, EndTS: 32, Busy: true},
				{StartTS: 61, EndTS: 70, Busy: true},
			},
			want: []EventInstance{
				{StartTS: 0, EndTS: 40, Busy: true},
				{StartTS: 50, EndTS: 60, Busy: true},
				{StartTS: 61, EndTS: 70, Busy: true},
			},
		},
		{
			name: "touching_differing_busy_not_merged",
			in: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 10, EndTS: 20, Busy: false},
			},
			want: []EventInstance{
				{StartTS: 0, EndTS: 10, Busy: true},
				{StartTS: 10, EndTS: 20, Busy: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCompatibleInstances(tt.in).Inner()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d instances, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("instance %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRemoveInstancesSingle(t *testing.T) {
	tests := []struct {
		name  string
		free  EventInstance
		busy  EventInstance
		want  []EventInstance
	}{
		{
			name: "no_overlap",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: 20, EndTS: 30, Busy: true},
			want: []EventInstance{{StartTS: 0, EndTS: 10}},
		},
		{
			name: "touching_is_no_overlap",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: 10, EndTS: 20, Busy: true},
			want: []EventInstance{{StartTS: 0, EndTS: 10}},
		},
		{
			name: "complete_overlap",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: -5, EndTS: 15, Busy: true},
			want: nil,
		},
		{
			name: "split",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: 3, EndTS: 6, Busy: true},
			want: []EventInstance{{StartTS: 0, EndTS: 3}, {StartTS: 6, EndTS: 10}},
		},
		{
			name: "overlap_begin",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: -5, EndTS: 5, Busy: true},
			want: []EventInstance{{StartTS: 5, EndTS: 10}},
		},
		{
			name: "overlap_end",
			free: EventInstance{StartTS: 0, EndTS: 10},
			busy: EventInstance{StartTS: 5, EndTS: 15, Busy: true},
			want: []EventInstance{{StartTS: 0, EndTS: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free := CompatibleInstances{events: []EventInstance{tt.free}}
			got := free.RemoveInstances([]EventInstance{tt.busy}, 0).Inner()
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("instance %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRemoveInstancesMulti(t *testing.T) {
	free := NewCompatibleInstances([]EventInstance{
		{StartTS: 0, EndTS: 100},
	})
	busy := []EventInstance{
		{StartTS: 10, EndTS: 20, Busy: true},
		{StartTS: 30, EndTS: 40, Busy: true},
		{StartTS: 90, EndTS: 95, Busy: true},
	}
	got := free.RemoveInstances(busy, 0).Inner()
	want := []EventInstance{
		{StartTS: 0, EndTS: 10},
		{StartTS: 20, EndTS: 30},
		{StartTS: 40, EndTS: 90},
		{StartTS: 95, EndTS: 100},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("instance %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRemoveInstancesIdentity(t *testing.T) {
	free := NewCompatibleInstances([]EventInstance{{StartTS: 0, EndTS: 100}})

	empty := free.RemoveInstances(nil, 0)
	if empty.Len() != 1 || empty.Get(0) != free.Get(0) {
		t.Errorf("remove_instances(X, empty) changed X: %+v", empty.Inner())
	}

	self := free.RemoveInstances(free.Inner(), 0)
	if !self.IsEmpty() {
		t.Errorf("remove_instances(X, X) should be empty, got %+v", self.Inner())
	}
}

func TestRemoveInstancesAssociativity(t *testing.T) {
	free := NewCompatibleInstances([]EventInstance{{StartTS: 0, EndTS: 100}})
	b1 := []EventInstance{{StartTS: 10, EndTS: 20, Busy: true}}
	b2 := []EventInstance{{StartTS: 50, EndTS: 60, Busy: true}}

	sequential := free.RemoveInstances(b1, 0).RemoveInstances(b2, 0)

	union := NewCompatibleInstances(append(append([]EventInstance{}, b1...), b2...))
	atOnce := free.RemoveInstances(union.Inner(), 0)

	if sequential.Len() != atOnce.Len() {
		t.Fatalf("got %+v, want %+v", sequential.Inner(), atOnce.Inner())
	}
	for i := range sequential.Inner() {
		if sequential.Get(i) != atOnce.Get(i) {
			t.Errorf("instance %d: got %+v, want %+v", i, sequential.Get(i), atOnce.Get(i))
		}
	}
}

func TestRemoveAllBeforeAfter(t *testing.T) {
	instances := NewCompatibleInstances([]EventInstance{
		{StartTS: 0, EndTS: 10},
		{StartTS: 20, EndTS: 30},
		{StartTS: 40, EndTS: 50},
	})

	before := instances.RemoveAllBefore(25)
	want := []EventInstance{{StartTS: 25, EndTS: 30}, {StartTS: 40, EndTS: 50}}
	if before.Len() != len(want) {
		t.Fatalf("got %+v, want %+v", before.Inner(), want)
	}
	for i := range want {
		if before.Get(i) != want[i] {
			t.Errorf("instance %d: got %+v, want %+v", i, before.Get(i), want[i])
		}
	}

	after := instances.RemoveAllAfter(25)
	want2 := []EventInstance{{StartTS: 0, EndTS: 10}, {StartTS: 20, EndTS: 25}}
	if after.Len() != len(want2) {
		t.Fatalf("got %+v, want %+v", after.Inner(), want2)
	}
	for i := range want2 {
		if after.Get(i) != want2[i] {
			t.Errorf("instance %d: got %+v, want %+v", i, after.Get(i), want2[i])
		}
	}
}

func TestGetFreeBusy(t *testing.T) {
	instances := []EventInstance{
		{StartTS: 0, EndTS: 100, Busy: false},
		{StartTS: 10, EndTS: 20, Busy: true},
	}
	free := GetFreeBusy(instances)
	want := []EventInstance{{StartTS: 0, EndTS: 10}, {StartTS: 20, EndTS: 100}}
	if free.Len() != len(want) {
		t.Fatalf("got %+v, want %+v", free.Inner(), want)
	}
	for i := range want {
		if free.Get(i) != want[i] {
			t.Errorf("instance %d: got %+v, want %+v", i, free.Get(i), want[i])
		}
	}
}

func TestStressManyInstances(t *testing.T) {
	free := make([]EventInstance, 0, 100)
	for i := 0; i < 100; i++ {
		start := int64(i * 1000)
		free = append(free, EventInstance{StartTS: start, EndTS: start + 1000})
	}
	busy := make([]EventInstance, 0, 200)
	for i := 0; i < 200; i++ {
		start := int64(i * 500)
		busy = append(busy, EventInstance{StartTS: start, EndTS: start + 1, Busy: true})
	}

	result := NewCompatibleInstances(free).RemoveInstances(busy, 0)
	if result.Len() == 0 {
		t.Fatalf("expected remaining free fragments, got none")
	}
}
