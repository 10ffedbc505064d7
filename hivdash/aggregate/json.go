package aggregate

import (
	"encoding/json"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Sums over records with missing numbers are NaN. These encoders write them
// as null; encoding/json refuses to emit a NaN float.

func (t YearTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year      int      `json:"year"`
		Incidence *float64 `json:"incidence"`
		Deaths    *float64 `json:"deaths"`
	}{t.Year, types.Nullable(t.Incidence), types.Nullable(t.Deaths)})
}

type shares struct {
	Incidence *float64 `json:"incidence"`
	Deaths    *float64 `json:"deaths"`
}

// EntityTotal also carries its pie shares.
func (e EntityTotal) MarshalJSON() ([]byte, error) {
	inc, dth := e.Shares()
	return json.Marshal(struct {
		Entity    string   `json:"entity"`
		Incidence *float64 `json:"incidence"`
		Deaths    *float64 `json:"deaths"`
		Shares    shares   `json:"shares"`
	}{e.Entity, types.Nullable(e.Incidence), types.Nullable(e.Deaths), shares{types.Nullable(inc), types.Nullable(dth)}})
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X     *float64 `json:"x"`
		Y     *float64 `json:"y"`
		Year  int      `json:"year"`
		Color string   `json:"color"`
	}{types.Nullable(p.X), types.Nullable(p.Y), p.Year, p.Color})
}

func (w Word) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text  string   `json:"text"`
		Value *float64 `json:"value"`
	}{w.Text, types.Nullable(w.Value)})
}
