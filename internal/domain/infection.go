package domain

// DateLayout is the calendar-date format used by observations and trend records.
const DateLayout = "2006-01-02"

// InfectionPoint is one observed (or predicted) infection site.
type InfectionPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Level float64 `json:"level"`
	Date  string  `json:"date,omitempty"`
}

// Timeframe is the predicted spatial state Day days after the prediction start.
type Timeframe struct {
	Day    int              `json:"day"`
	Points []InfectionPoint `json:"points"`
}

// PredictionSeries is the multi-timeframe output of the spread simulation.
type PredictionSeries struct {
	Timeframes   []Timeframe      `json:"timeframes"`
	InitialState []InfectionPoint `json:"initial_state"`
	FinalState   []InfectionPoint `json:"final_state"`
}

// Days returns the prediction period, i.e. the day offset of the last timeframe.
func (s PredictionSeries) Days() int {
	if len(s.Timeframes) == 0 {
		return 0
	}
	return s.Timeframes[len(s.Timeframes)-1].Day
}

// Clone returns a deep copy so the caller cannot mutate shared point slices.
func (s PredictionSeries) Clone() PredictionSeries {
	out := PredictionSeries{
		Timeframes:   make([]Timeframe, len(s.Timeframes)),
		InitialState: ClonePoints(s.InitialState),
		FinalState:   ClonePoints(s.FinalState),
	}
	for i, tf := range s.Timeframes {
		out.Timeframes[i] = tf.Clone()
	}
	return out
}

// Clone returns a copy of the timeframe with its own point slice.
func (t Timeframe) Clone() Timeframe {
	return Timeframe{Day: t.Day, Points: ClonePoints(t.Points)}
}

// ClonePoints copies a point slice. A nil input yields an empty, non-nil slice.
func ClonePoints(points []InfectionPoint) []InfectionPoint {
	out := make([]InfectionPoint, len(points))
	copy(out, points)
	return out
}

// TrendRecord aggregates the observations recorded on one date.
type TrendRecord struct {
	Date     string  `json:"date"`
	Count    int     `json:"count"`
	AvgLevel float64 `json:"avg_level"`
}

// TrendSeries is a chronologically ordered sequence of trend records.
type TrendSeries []TrendRecord

// ModelInfo describes one classification model known to the data source.
type ModelInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Accuracy    float64 `json:"accuracy"`
	Active      bool    `json:"active"`
	LastUpdated string  `json:"last_updated"`
}
