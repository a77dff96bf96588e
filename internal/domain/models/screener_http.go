package models

// Requests for the screener HTTP endpoints.

type TickersRequest struct {
	Query string `query:"q" json:"q" validate:"max=32"`
}

type RecordsRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,max=32"`
	Limit  int    `query:"limit" json:"limit" default:"0" validate:"gte=0,lte=100000"`
}

type FlagFilterRequest struct {
	Mode  string `json:"mode" default:"all" validate:"oneof=all any exact"`
	Value string `json:"value" validate:"required_if=Mode exact,max=64"`
}

type BooleanFilterRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	State string `json:"state" default:"any" validate:"oneof=any true false"`
}

// RecordView is the renderer-facing form of a Record.
type RecordView struct {
	Date       string         `json:"date"`
	Open       float64        `json:"open"`
	High       float64        `json:"high"`
	Low        float64        `json:"low"`
	Close      float64        `json:"close"`
	Volume     *float64       `json:"volume"`
	Indicators map[string]any `json:"indicators,omitempty"`
}

// NewRecordView converts a record, keeping numeric indicators as numbers.
func NewRecordView(r Record) RecordView {
	v := RecordView{
		Date:   r.DateString(),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
	if len(r.Indicators) > 0 {
		v.Indicators = make(map[string]any, len(r.Indicators))
		for k, iv := range r.Indicators {
			if iv.IsNum {
				v.Indicators[k] = iv.Num
			} else {
				v.Indicators[k] = iv.Text
			}
		}
	}
	return v
}
