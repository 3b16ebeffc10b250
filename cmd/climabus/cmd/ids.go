package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIDs accepts 0x-prefixed hex or decimal identifiers, separately or
// comma separated.
func parseIDs(args []string) ([]uint32, error) {
	var out []uint32
	for _, arg := range args {
		for _, p := range strings.Split(arg, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id, err := parseID(p)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func parseID(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 29)
	if err != nil {
		return 0, fmt.Errorf("invalid CAN identifier %q: %w", s, err)
	}
	return uint32(v), nil
}
