package gate

// JetpackRanges are the published Jetpack / WordPress.com ranges. Requests
// from them are allowed regardless of geography.
var JetpackRanges = []string{
	"192.0.64.0/18",
	"198.181.116.0/20",
	"66.155.8.0/21",
	"66.155.9.0/24",
	"66.155.11.0/24",
	"76.74.248.0/21",
	"76.74.254.0/24",
	"195.234.108.0/22",
}
