package mapview

import (
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
)

// Style is the visual treatment of a marker category.
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var styles = map[types.MarkerCategory]Style{
	types.CategoryMyDelivery:  {Color: "#2196F3", Icon: "truck"},
	types.CategoryAvailable:   {Color: "#4CAF50", Icon: "box"},
	types.CategoryMyPackage:   {Color: "#9C27B0", Icon: "gift"},
	types.CategoryOther:       {Color: "#BDBDBD", Icon: "cube-outline"},
	types.CategoryDestination: {Color: "#E91E63", Icon: "flag"},
}

// StyleOf returns the style for c. Unknown categories render as other.
func StyleOf(c types.MarkerCategory) Style {
	if s, ok := styles[c]; ok {
		return s
	}
	return styles[types.CategoryOther]
}

// Categorize classifies pkg relative to viewerID. The first matching rule wins,
// so a deliverer sees their own package as my_delivery even if they also sent it.
func Categorize(pkg *models.Package, viewerID string) types.MarkerCategory {
	switch {
	case pkg.IsDeliverer(viewerID) && (pkg.Status == types.StatusAssigned || pkg.Status == types.StatusInTransit):
		return types.CategoryMyDelivery
	case pkg.Status == types.StatusPending:
		return types.CategoryAvailable
	case pkg.IsSender(viewerID):
		return types.CategoryMyPackage
	default:
		return types.CategoryOther
	}
}

func describe(pkg *models.Package, category types.MarkerCategory) string {
	if category == types.CategoryMyDelivery {
		switch pkg.Status {
		case types.StatusAssigned:
			return "Go to Pickup"
		case types.StatusInTransit:
			return "Go to Dropoff"
		}
	}
	return pkg.Status.String()
}
