package geo

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"

	"github.com/Wikid82/geogate/internal/cidr"
)

// Source answers country lookups from local data without network calls.
type Source interface {
	Lookup(ip string) (string, bool)
}

// Range labels a CIDR block with a country code.
type Range struct {
	CIDR    string
	Country string
}

// StaticTable is an ordered list of labelled ranges; the first match wins.
type StaticTable []Range

// Lookup implements Source.
func (t StaticTable) Lookup(ip string) (string, bool) {
	for _, r := range t {
		if cidr.InRange(ip, r.CIDR) {
			return r.Country, true
		}
	}
	return "", false
}

// LabelRanges builds a table assigning the same code to every block.
func LabelRanges(country string, blocks []string) StaticTable {
	table := make(StaticTable, 0, len(blocks))
	for _, b := range blocks {
		table = append(table, Range{CIDR: b, Country: country})
	}
	return table
}

// NigeriaRanges are carrier, ISP and institutional blocks allocated in
// Nigeria (MTN, Airtel, Glo, 9mobile, exchanges, government/education).
var NigeriaRanges = []string{
	"41.58.0.0/16", "41.75.0.0/16", "105.112.0.0/12", "102.176.0.0/12",
	"102.90.0.0/16",

	"41.76.0.0/16", "41.77.0.0/16", "41.78.0.0/16", "41.79.0.0/16",
	"102.67.0.0/16", "105.235.0.0/16",

	"154.113.0.0/16", "41.203.0.0/16", "41.184.0.0/16", "102.89.0.0/16",

	"41.190.0.0/16", "196.6.0.0/16", "102.91.0.0/16",

	"196.1.0.0/16", "196.13.0.0/16", "196.27.0.0/16", "196.28.0.0/16",
	"196.29.0.0/16", "196.46.0.0/16", "196.49.0.0/16", "197.149.0.0/16",

	"196.200.0.0/13", "196.208.0.0/12", "197.210.0.0/16",

	"129.205.0.0/16", "165.73.0.0/16", "165.88.0.0/16",

	"102.88.0.0/16", "105.224.0.0/12",
	"197.242.0.0/16", "197.253.0.0/16", "197.255.0.0/16",
}

// DefaultStaticTable is the built-in local table.
func DefaultStaticTable() StaticTable {
	return LabelRanges("NG", NigeriaRanges)
}

// MMDBSource reads a MaxMind or DB-IP country database.
type MMDBSource struct {
	reader *maxminddb.Reader
}

type mmdbCountry struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// OpenMMDB memory-maps the database at path.
func OpenMMDB(path string) (*MMDBSource, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mmdb %s: %w", path, err)
	}
	return &MMDBSource{reader: reader}, nil
}

// Lookup implements Source. Only IPv4 addresses are consulted.
func (m *MMDBSource) Lookup(ip string) (string, bool) {
	if !cidr.IsIPv4(ip) {
		return "", false
	}
	var rec mmdbCountry
	if err := m.reader.Lookup(net.ParseIP(ip), &rec); err != nil {
		return "", false
	}
	code := strings.ToUpper(rec.Country.ISOCode)
	if !ValidCode(code) {
		return "", false
	}
	return code, true
}

// Close unmaps the database.
func (m *MMDBSource) Close() error { return m.reader.Close() }
