package flight

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/seantiz/flysearch/internal/provider"
)

// labelLocale is the agent label locale used for display names.
const labelLocale = "ru"

// Normalize converts one validated provider chunk into offers grouped by
// route key. Tickets without proposals, resolvable segments or fares are
// skipped.
func Normalize(chunk provider.Chunk) map[string][]Offer {
	offers := make(map[string][]Offer)
	if len(chunk.Tickets) == 0 {
		return offers
	}

	agents := agentNames(chunk.Agents)
	for _, ticket := range chunk.Tickets {
		offer, ok := buildOffer(ticket, agents, chunk.FlightLegs)
		if !ok {
			continue
		}
		key := routeKey(offer)
		offers[key] = append(offers[key], offer)
	}
	return offers
}

// Merge appends the offers of src into dst, route by route.
func Merge(dst, src map[string][]Offer) map[string][]Offer {
	if dst == nil {
		dst = make(map[string][]Offer, len(src))
	}
	for key, offers := range src {
		dst[key] = append(dst[key], offers...)
	}
	return dst
}

// BuildResponse normalizes and merges chunks into a response for pid.
// Success is true when at least one route has offers.
func BuildResponse(pid string, chunks []provider.Chunk) *Response {
	result := make(map[string][]Offer)
	for _, c := range chunks {
		result = Merge(result, Normalize(c))
	}

	success := false
	for _, offers := range result {
		if len(offers) > 0 {
			success = true
			break
		}
	}
	return &Response{Success: success, Pid: pid, Result: result}
}

func buildOffer(ticket provider.Ticket, agents map[string]string, legs []provider.FlightLeg) (Offer, bool) {
	if len(ticket.Proposals) == 0 {
		return Offer{}, false
	}

	segments := buildSegments(ticket, legs)
	if len(segments) == 0 {
		return Offer{}, false
	}

	fares := buildFares(ticket.Proposals, agents)
	if len(fares) == 0 {
		return Offer{}, false
	}

	prices, minProvider, minPrice := collectPrices(ticket.Proposals, agents)

	duration := 0
	for _, s := range segments {
		duration += s.Duration
	}

	return Offer{
		IsVtrip:     isVtrip(segments),
		Key:         offerKey(ticket),
		FlightInfo:  FlightInfo{Forward: segments},
		Fares:       fares,
		Prices:      prices,
		Duration:    duration,
		MinPrice:    minPrice,
		MinProvider: minProvider,
	}, true
}

// buildSegments resolves the ticket's leg indices using the first proposal's
// flight terms. Out-of-range indices are skipped.
func buildSegments(ticket provider.Ticket, legs []provider.FlightLeg) []Segment {
	terms := ticket.Proposals[0].FlightTerms

	var segments []Segment
	for _, ts := range ticket.Segments {
		for _, idx := range ts.Flights {
			if idx < 0 || idx >= len(legs) {
				continue
			}
			leg := legs[idx]
			term := terms[strconv.Itoa(idx)]
			segments = append(segments, Segment{
				Departure:        leg.Origin,
				Arrival:          leg.Destination,
				DepartureDate:    string(leg.LocalDepartureDateTime),
				ArrivalDate:      string(leg.LocalArrivalDateTime),
				Duration:         minutesBetween(leg.DepartureUnixTimestamp, leg.ArrivalUnixTimestamp),
				Number:           term.MarketingCarrierDesignator.Number,
				MarketingCarrier: term.MarketingCarrierDesignator.Carrier,
				OperatingCarrier: leg.OperatingCarrierDesignator.Carrier,
			})
		}
	}
	return segments
}

func buildFares(proposals []provider.Proposal, agents map[string]string) []Fare {
	fares := make([]Fare, 0, len(proposals))
	for _, p := range proposals {
		mf := p.MinimumFare
		code := mf.FareCode
		if code == "" {
			code = mf.Code
		}
		fares = append(fares, Fare{
			FareKey: mf.FareKey,
			FareInfo: []FareInfo{{
				FareCode:  code,
				TripClass: tripClass(p),
				Baggage: Baggage{
					Handbags: allowance(mf.Handbags),
					Baggage:  allowance(mf.Baggage),
				},
				Rules: Rules{
					ReturnBeforeFlight: rule(mf.ReturnBeforeFlight),
					ChangeBeforeFlight: rule(mf.ChangeBeforeFlight),
				},
			}},
			Prices: map[string]int{agentName(p.AgentID, agents): int(p.Price.Value)},
		})
	}
	return fares
}

// collectPrices maps agent names to prices. A later proposal from the same
// agent overwrites an earlier one; the first minimum wins ties.
func collectPrices(proposals []provider.Proposal, agents map[string]string) (map[string]int, string, int) {
	prices := make(map[string]int, len(proposals))
	order := make([]string, 0, len(proposals))
	for _, p := range proposals {
		name := agentName(p.AgentID, agents)
		if _, seen := prices[name]; !seen {
			order = append(order, name)
		}
		prices[name] = int(p.Price.Value)
	}

	minProvider, minPrice := "", 0
	for i, name := range order {
		if i == 0 || prices[name] < minPrice {
			minProvider, minPrice = name, prices[name]
		}
	}
	return prices, minProvider, minPrice
}

// tripClass returns the trip class of the proposal's lowest-indexed flight term.
func tripClass(p provider.Proposal) string {
	best := -1
	class := ""
	for k, term := range p.FlightTerms {
		idx, err := strconv.Atoi(k)
		if err != nil {
			idx = int(^uint(0) >> 1)
		}
		if best == -1 || idx < best {
			best, class = idx, term.TripClass
		}
	}
	return class
}

func allowance(a *provider.Allowance) BaggageInfo {
	if a == nil {
		return BaggageInfo{}
	}
	info := BaggageInfo{Count: a.Count}
	if a.Weight != nil {
		w := int(*a.Weight)
		info.Weight = &w
	}
	return info
}

func rule(r *provider.Rule) RuleInfo {
	if r == nil {
		return RuleInfo{}
	}
	return RuleInfo{Available: r.Available, IsFromConfig: r.IsFromConfig}
}

func minutesBetween(departure, arrival int64) int {
	if departure == 0 || arrival == 0 {
		return 0
	}
	return int((arrival - departure) / 60)
}

// isVtrip reports a virtual interline: more than one segment with at least
// one segment sold by a carrier other than the one operating it.
func isVtrip(segments []Segment) bool {
	if len(segments) <= 1 {
		return false
	}
	for _, s := range segments {
		if s.MarketingCarrier != s.OperatingCarrier {
			return true
		}
	}
	return false
}

func offerKey(t provider.Ticket) string {
	switch {
	case t.Signature != "":
		return t.Signature
	case t.Hashsum != "":
		return t.Hashsum
	default:
		return t.ID
	}
}

func routeKey(o Offer) string {
	if len(o.FlightInfo.Forward) == 0 {
		return ""
	}
	first := o.FlightInfo.Forward[0]
	date := first.DepartureDate
	if len(date) > 10 {
		date = date[:10]
	}
	return first.Departure + first.Arrival + strings.ReplaceAll(date, "-", "")
}

func agentNames(raw map[string]provider.Agent) map[string]string {
	names := make(map[string]string, len(raw))
	for id, a := range raw {
		if label := a.Label[labelLocale].Default; label != "" {
			names[id] = label
			continue
		}
		names[id] = id
	}
	return names
}

func agentName(id json.Number, agents map[string]string) string {
	if name, ok := agents[id.String()]; ok {
		return name
	}
	return id.String()
}
