// Package flight defines the service's stable response schema and maps
// validated provider chunks into it.
package flight

// Response is the normalized result of one search. Result groups offers by
// route key (origin + destination + departure date, e.g. "MOWLED20251217").
type Response struct {
	Success bool               `json:"success"`
	Pid     string             `json:"pid"`
	Result  map[string][]Offer `json:"result"`
}

// Offer is one bookable itinerary with its fares.
type Offer struct {
	IsVtrip     bool           `json:"is_vtrip"`
	Key         string         `json:"key"`
	FlightInfo  FlightInfo     `json:"flight_info"`
	Fares       []Fare         `json:"fares"`
	Prices      map[string]int `json:"prices"`
	Duration    int            `json:"duration"`
	MinPrice    int            `json:"min_price"`
	MinProvider string         `json:"min_provider"`
}

// FlightInfo lists the segments of the outbound journey.
type FlightInfo struct {
	Forward []Segment `json:"forward"`
}

// Segment is one flight of an itinerary. Duration is in minutes.
type Segment struct {
	Departure        string `json:"departure"`
	Arrival          string `json:"arrival"`
	DepartureDate    string `json:"departure_date"`
	ArrivalDate      string `json:"arrival_date"`
	Duration         int    `json:"duration"`
	Number           string `json:"number"`
	MarketingCarrier string `json:"marketing_carrier"`
	OperatingCarrier string `json:"operating_carrier"`
}

// Fare is one agent's tariff for an offer.
type Fare struct {
	FareKey  string         `json:"fare_key"`
	FareInfo []FareInfo     `json:"fare_info"`
	Prices   map[string]int `json:"prices"`
}

// FareInfo describes the conditions of a fare.
type FareInfo struct {
	FareCode  string  `json:"fare_code"`
	TripClass string  `json:"trip_class"`
	Baggage   Baggage `json:"baggage"`
	Rules     Rules   `json:"rules"`
}

// Baggage holds cabin and checked allowances.
type Baggage struct {
	Handbags BaggageInfo `json:"handbags"`
	Baggage  BaggageInfo `json:"baggage"`
}

// BaggageInfo is a single allowance. Weight is omitted when unknown.
type BaggageInfo struct {
	Count  int  `json:"count"`
	Weight *int `json:"weight,omitempty"`
}

// Rules holds refund and exchange conditions.
type Rules struct {
	ReturnBeforeFlight RuleInfo `json:"return_before_flight"`
	ChangeBeforeFlight RuleInfo `json:"change_before_flight"`
}

// RuleInfo is one fare rule.
type RuleInfo struct {
	Available    bool `json:"available"`
	IsFromConfig bool `json:"is_from_config"`
}

// OfferCount returns the total number of offers across all routes.
func (r *Response) OfferCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, offers := range r.Result {
		n += len(offers)
	}
	return n
}
