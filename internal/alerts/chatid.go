package alerts

import "strconv"

// parseSubscriberChatID recovers the numeric chat id from a routed
// recipient string. It fails for a non-numeric identifier such as a
// channel's @username; a numeric channel id parses like any other, so the
// router checks for the broadcast channel before disabling anyone.
func parseSubscriberChatID(chatID string) (int64, error) {
	return strconv.ParseInt(chatID, 10, 64)
}
