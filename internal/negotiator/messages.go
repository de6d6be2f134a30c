package negotiator

// Outbound frames are {"payload": ..., "name": "StatusUpdate"|"Play"}.
// Field names and ordering semantics are part of the client contract.

type envelope struct {
	Payload interface{} `json:"payload"`
	Name    string      `json:"name"`
}

type connectingPayload struct {
	State string `json:"state"`
}

type waitingPayload struct {
	TotalPlayers     int    `json:"totalPlayers"`
	ConnectedPlayers int    `json:"connectedPlayers"`
	State            string `json:"state"`
}

type queuedPayload struct {
	TicketID         string   `json:"ticketId"`
	QueuedPlayers    int      `json:"queuedPlayers"`
	EstimatedWaitSec int      `json:"estimatedWaitSec"`
	Status           struct{} `json:"status"`
	State            string   `json:"state"`
}

type assignmentPayload struct {
	MatchID string `json:"matchId"`
	State   string `json:"state"`
}

type playPayload struct {
	MatchID      string `json:"matchId"`
	SessionID    string `json:"sessionId"`
	JoinDelaySec int    `json:"joinDelaySec"`
}

// inbound in-band message; clients may supply late identity this way
type clientMessage struct {
	AccountID string `json:"accountId"`
	Playlist  string `json:"playlist"`
}

func statusUpdate(payload interface{}) envelope {
	return envelope{Payload: payload, Name: "StatusUpdate"}
}

func playMessage(matchID, sessionID string) envelope {
	return envelope{
		Payload: playPayload{MatchID: matchID, SessionID: sessionID, JoinDelaySec: 1},
		Name:    "Play",
	}
}

func estimatedWaitSec(queued int) int {
	if est := queued * 3; est < 30 {
		return est
	}
	return 30
}
