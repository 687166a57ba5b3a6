package presence

import "strings"

// Translate normalizes raw gateway presence. With includeActivity false both
// activity fields are nil whatever the input holds.
func Translate(raw Raw, includeActivity bool) Snapshot {
	out := Snapshot{Status: normalizeStatus(raw.Status)}
	if !includeActivity {
		return out
	}
	out.Activity = primaryActivity(raw.Activities)
	out.Listening = listeningActivity(raw.Activities)
	return out
}

func normalizeStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOnline:
		return StatusOnline
	case StatusIdle:
		return StatusIdle
	case StatusDND:
		return StatusDND
	default:
		return StatusOffline
	}
}

// primaryActivity skips custom statuses and listening entries; the latter are
// reported separately.
func primaryActivity(list []RawActivity) *Activity {
	for _, a := range list {
		if a.Type == ActivityCustom || a.Type == ActivityListening {
			continue
		}
		return &Activity{
			Name:    strings.TrimSpace(a.Name),
			Details: strings.TrimSpace(a.Details),
			State:   strings.TrimSpace(a.State),
		}
	}
	return nil
}

func listeningActivity(list []RawActivity) *Listening {
	for _, a := range list {
		if a.Type != ActivityListening {
			continue
		}
		title := strings.TrimSpace(a.Details)
		if title == "" {
			title = strings.TrimSpace(a.Name)
		}
		if title == "" {
			return nil
		}
		return &Listening{Title: title, Artist: strings.TrimSpace(a.State)}
	}
	return nil
}
