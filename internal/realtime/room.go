// Package realtime tracks live websocket connections, groups them into
// rooms and pushes server events to them.
package realtime

import "strings"

// Room is a named broadcast group derived from an id.
type Room string

// Room name prefixes.
const (
	prefixUser    = "user:"
	prefixCompany = "company:"
	prefixCall    = "call:"
	prefixChat    = "chat:"
)

func UserRoom(userID string) Room { return Room(prefixUser + userID) }

func CompanyRoom(companyID string) Room { return Room(prefixCompany + companyID) }

func CallRoom(callID string) Room { return Room(prefixCall + callID) }

func ChatRoom(chatID string) Room { return Room(prefixChat + chatID) }

// Valid reports whether r has a known prefix and a non-empty id.
func (r Room) Valid() bool {
	s := string(r)
	for _, p := range []string{prefixUser, prefixCompany, prefixCall, prefixChat} {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}
