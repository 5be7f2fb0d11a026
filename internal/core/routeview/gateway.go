package routeview

import (
	"strings"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

// Placeholder gateway text for routes without addresses.
const (
	OriginLabel       = "Starting Point"
	DestinationLabel  = "Destination"
	OriginRegion      = "Origin Country"
	DestinationRegion = "Destination Country"
)

// Gateways derives the origin and destination gateway nodes from the first
// and last waypoint. Empty addresses fall back to placeholder text.
func Gateways(first, last domain.Waypoint, startAddress, endAddress string) []domain.GatewayNode {
	return []domain.GatewayNode{
		gateway(first.Point, startAddress, OriginLabel, OriginRegion),
		gateway(last.Point, endAddress, DestinationLabel, DestinationRegion),
	}
}

func gateway(at domain.GeoPoint, address, label, region string) domain.GatewayNode {
	if strings.TrimSpace(address) == "" {
		return domain.GatewayNode{Location: at, Label: label, Region: region}
	}
	parts := strings.Split(address, ",")
	return domain.GatewayNode{
		Location: at,
		Label:    parts[0],
		Region:   strings.TrimSpace(parts[len(parts)-1]),
	}
}
