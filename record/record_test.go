package record

import (
	"context"
	"testing"

	"github.com/kbukum/bulkflow/pipeline"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		sep    string
		want   Entity
		wantOK bool
	}{
		{name: "two fields", raw: "Ragnar;Kattegat", sep: ";", want: Entity{Name: "Ragnar", Place: "Kattegat"}, wantOK: true},
		{name: "first and last of many", raw: "Bjorn;Ironside;Uppsala", sep: ";", want: Entity{Name: "Bjorn", Place: "Uppsala"}, wantOK: true},
		{name: "empty fields still count", raw: ";", sep: ";", want: Entity{}, wantOK: true},
		{name: "carriage return trimmed", raw: "Lagertha;Hedeby\r", sep: ";", want: Entity{Name: "Lagertha", Place: "Hedeby"}, wantOK: true},
		{name: "default separator", raw: "Floki;Iceland", sep: "", want: Entity{Name: "Floki", Place: "Iceland"}, wantOK: true},
		{name: "custom separator", raw: "Rollo,Normandy", sep: ",", want: Entity{Name: "Rollo", Place: "Normandy"}, wantOK: true},
		{name: "single field", raw: "Ivar", sep: ";"},
		{name: "empty", raw: "", sep: ";"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse([]byte(tt.raw), tt.sep)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapper_FiltersUnmappable(t *testing.T) {
	raw := [][]byte{[]byte("A;X"), []byte("junk"), []byte(""), []byte("B;Y")}
	got, err := pipeline.Collect(context.Background(), pipeline.FilterMap(pipeline.FromSlice(raw), Mapper(";")))
	if err != nil {
		t.Fatal(err)
	}
	want := []Entity{{Name: "A", Place: "X"}, {Name: "B", Place: "Y"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entity %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
