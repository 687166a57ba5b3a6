package presence

type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// Gateway activity kinds.
const (
	ActivityPlaying   = 0
	ActivityStreaming = 1
	ActivityListening = 2
	ActivityWatching  = 3
	ActivityCustom    = 4
	ActivityCompeting = 5
)

// Raw is presence as reported by the gateway.
type Raw struct {
	Status     string        `json:"discord_status"`
	Activities []RawActivity `json:"activities"`
}

type RawActivity struct {
	Type    int    `json:"type"`
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

type Activity struct {
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

type Listening struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

// Snapshot is derived per request and never cached.
type Snapshot struct {
	Status    Status     `json:"status"`
	Activity  *Activity  `json:"activity"`
	Listening *Listening `json:"listening"`
}

func Offline() Snapshot {
	return Snapshot{Status: StatusOffline}
}
