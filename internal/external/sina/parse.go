package sina

import (
	"regexp"
	"strings"
)

// var hq_str_sh600000="浦发银行,10.00,9.98,10.10,…";
var hqLinePattern = regexp.MustCompile(`hq_str_(\w+)="([^"]*)"`)

// ParseHQ maps each vendor symbol in a list= response to its comma-separated fields.
// Empty rows (`="";`, unknown symbol) are skipped.
func ParseHQ(text string) map[string][]string {
	rows := make(map[string][]string)

	for _, line := range strings.Split(text, "\n") {
		m := hqLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		data := strings.TrimSpace(m[2])
		if data == "" {
			continue
		}
		rows[m[1]] = strings.Split(data, ",")
	}

	return rows
}
