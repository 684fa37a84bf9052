package wire

// Payload structs for each message type. Field names follow the on-wire
// JSON keys exactly.

// RegisterRequest asks a seed to admit a peer (REGISTER_REQUEST).
type RegisterRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RegisterReply is the body of both REGISTER_ACK and REGISTER_NACK.
type RegisterReply struct {
	PeerID  string `json:"peer_id"`
	Message string `json:"message"`
}

// PeerEntry is one member of the authoritative peer list.
type PeerEntry struct {
	Host   string  `json:"host"`
	Port   int     `json:"port"`
	Joined float64 `json:"joined"`
}

// PeerList is a seed's snapshot of its membership (PEER_LIST).
type PeerList struct {
	Peers  map[string]PeerEntry `json:"peers"`
	SeedID string               `json:"seed_id"`
}

// DeadNodeReport carries a peer-level failure verdict to a seed
// (DEAD_NODE_REPORT).
type DeadNodeReport struct {
	DeadPeerID   string  `json:"dead_peer_id"`
	ReporterID   string  `json:"reporter_id"`
	PeerVotes    int     `json:"peer_votes"`
	Timestamp    float64 `json:"timestamp"`
	ReportString string  `json:"report_string"`
}

// ProposeRegister opens a registration consensus round (PROPOSE_REGISTER).
type ProposeRegister struct {
	ProposalID string `json:"proposal_id"`
	PeerHost   string `json:"peer_host"`
	PeerPort   int    `json:"peer_port"`
	PeerID     string `json:"peer_id"`
	Proposer   string `json:"proposer"`
}

// ProposeRemove opens a removal consensus round (PROPOSE_REMOVE).
type ProposeRemove struct {
	ProposalID string `json:"proposal_id"`
	PeerID     string `json:"peer_id"`
	Reporter   string `json:"reporter"`
	PeerVotes  int    `json:"peer_votes"`
	Proposer   string `json:"proposer"`
}

// Vote is the body of both VOTE_REGISTER and VOTE_REMOVE.
type Vote struct {
	ProposalID string `json:"proposal_id"`
	Voter      string `json:"voter"`
	Vote       bool   `json:"vote"`
}

// SeedSync is the periodic full-snapshot exchange between seeds (SEED_SYNC).
type SeedSync struct {
	Peers  map[string]PeerEntry `json:"peers"`
	Sender string               `json:"sender"`
}

// Gossip is one disseminated message (GOSSIP).
type Gossip struct {
	MsgID   string `json:"msg_id"`
	MsgHash string `json:"msg_hash"`
	Sender  string `json:"sender"`
}

// Ping is a liveness probe (PING).
type Ping struct {
	Sender    string  `json:"sender"`
	Timestamp float64 `json:"timestamp"`
}

// Pong answers a liveness probe (PONG).
type Pong struct {
	Sender    string  `json:"sender"`
	Timestamp float64 `json:"timestamp"`
}

// SuspectQuery asks a neighbor to corroborate a suspicion (SUSPECT_QUERY).
type SuspectQuery struct {
	Sender  string `json:"sender"`
	Suspect string `json:"suspect"`
}

// SuspectResponse is a neighbor's corroboration verdict (SUSPECT_RESPONSE).
type SuspectResponse struct {
	Sender    string `json:"sender"`
	Suspect   string `json:"suspect"`
	Confirmed bool   `json:"confirmed"`
}

// Constructors for the frames built on hot paths.

// NewGossip creates a GOSSIP frame.
func NewGossip(msgID, msgHash, sender string) (*Message, error) {
	return New(TypeGossip, &Gossip{MsgID: msgID, MsgHash: msgHash, Sender: sender})
}

// NewPing creates a PING frame.
func NewPing(sender string) (*Message, error) {
	return New(TypePing, &Ping{Sender: sender, Timestamp: Now()})
}

// NewPong creates a PONG frame.
func NewPong(sender string) (*Message, error) {
	return New(TypePong, &Pong{Sender: sender, Timestamp: Now()})
}

// NewVote creates a VOTE_REGISTER or VOTE_REMOVE frame.
func NewVote(t Type, proposalID, voter string, vote bool) (*Message, error) {
	return New(t, &Vote{ProposalID: proposalID, Voter: voter, Vote: vote})
}
