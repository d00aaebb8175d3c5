package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		carrier, awb, explicit string
		want                   string
	}{
		{"explicit wins", "Delhivery", "123", "https://track.example.com/x", "https://track.example.com/x"},
		{"explicit must be http", "Delhivery", "123", "javascript:alert(1)", "https://www.delhivery.com/tracking/123"},
		{"blue dart with space", "Blue Dart Express", "AB 12", "", "https://www.bluedart.com/tracking?trackno=AB+12"},
		{"xpressbees", "XpressBees", "XB1", "", "https://www.xpressbees.com/track?awb=XB1"},
		{"ecom express", "Ecom Express", "E1", "", "https://ecomexpress.in/tracking/?awb=E1"},
		{"dtdc", "dtdc", "D9", "", "https://www.dtdc.in/tracking.asp?cno=D9"},
		{"speed post", "Speed Post", "EE1IN", "", "https://www.indiapost.gov.in/_layouts/15/dop.portal.tracking/trackconsignment.aspx"},
		{"shadowfax", "Shadowfax", "S/1", "", "https://www.shadowfax.in/track/S%2F1"},
		{"ekart", "Ekart Logistics", "K1", "", "https://ekartlogistics.com/"},
		{"unknown carrier", "Pigeon Post", "1", "", ""},
		{"missing awb", "Delhivery", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Link(tt.carrier, tt.awb, tt.explicit))
		})
	}
}
