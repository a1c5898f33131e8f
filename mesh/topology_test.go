package mesh

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewTopology(t *testing.T) {
	tests := []struct {
		name      string
		nodeCount int
		adjacency map[NodeID][]NodeID
		wantErr   bool
	}{
		{
			name:      "symmetric line",
			nodeCount: 3,
			adjacency: map[NodeID][]NodeID{0: {1}, 1: {0, 2}, 2: {1}},
			wantErr:   false,
		},
		{
			name:      "asymmetric link rejected",
			nodeCount: 2,
			adjacency: map[NodeID][]NodeID{0: {1}},
			wantErr:   true,
		},
		{
			name:      "self loop rejected",
			nodeCount: 2,
			adjacency: map[NodeID][]NodeID{0: {0}},
			wantErr:   true,
		},
		{
			name:      "out of range rejected",
			nodeCount: 2,
			adjacency: map[NodeID][]NodeID{0: {5}},
			wantErr:   true,
		},
		{
			name:      "non positive node count rejected",
			nodeCount: 0,
			adjacency: nil,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTopology(tt.nodeCount, tt.adjacency)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTopology() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTopologyNeighborsSorted(t *testing.T) {
	topo, err := NewTopology(4, map[NodeID][]NodeID{0: {3, 1, 2}, 1: {0}, 2: {0}, 3: {0}})
	if err != nil {
		t.Fatalf("NewTopology() error = %v", err)
	}
	got := topo.Neighbors(0)
	want := []NodeID{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Neighbors(0) = %v, want %v", got, want)
	}
}

func TestParseTopology(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple edge list", input: "0 1\n1 2\n2 0\n", wantErr: false},
		{name: "blank line between edges tolerated", input: "0 1\n\n1 0\n", wantErr: false},
		{name: "malformed line rejected", input: "0 1 2\n", wantErr: true},
		{name: "non integer rejected", input: "a b\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology(3, strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTopology() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
