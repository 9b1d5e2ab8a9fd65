package services

import "testing"

func TestNormalizeMerchant(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"NETFLIX PAYMENT", "netflix payment"},
		{"  Spotify  ", "spotify"},
		{"AMZN*Prime Video", "amznprime video"},
		{"Café—Restaurant #42", "cafrestaurant 42"},
		{"PAYPAL *STEAM  GAMES", "paypal steam games"},
		{"***", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeMerchant(tc.in); got != tc.out {
			t.Fatalf("%q expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
