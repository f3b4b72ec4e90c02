package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/quizbid/quizbid/internal/auction"
)

type memQuestionStore struct {
	mu        sync.Mutex
	questions map[int]auction.Question
	owners    map[int]string
}

func (s *memQuestionStore) FindByIndex(_ context.Context, index int) (*auction.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[index]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *memQuestionStore) SetOwner(_ context.Context, index int, team string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[index] = team
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	entries map[string]*auction.LedgerEntry
}

func (l *memLedger) FindByTeam(_ context.Context, team string) (*auction.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[team]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (l *memLedger) ApplyAtomic(_ context.Context, team string, debit int64, wonTitle string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[team]
	e.Points -= debit
	e.QuestionsWon = append(e.QuestionsWon, wonTitle)
	return nil
}

type testEnv struct {
	server *httptest.Server
	hub    *Hub
	cancel context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	qs := &memQuestionStore{
		questions: map[int]auction.Question{
			3: {Index: 3, Title: "Graph Theory", Description: "Shortest paths under fire"},
		},
		owners: map[int]string{},
	}
	ledger := &memLedger{entries: map[string]*auction.LedgerEntry{
		"teamA": {Team: "teamA", Points: 1000},
		"teamB": {Team: "teamB", Points: 1000},
	}}

	// The hub is both the broadcaster the controller emits into and
	// the command router feeding the controller.
	hub := NewHub(nil, DefaultConnectionConfig())
	ctrl := auction.NewController(qs, ledger, hub)
	hub.SetController(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)

	mux := http.NewServeMux()
	NewHandler(hub).RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	env := &testEnv{server: server, hub: hub, cancel: cancel}
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return env
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) auction.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	assert.NoError(t, err)
	var ev auction.Event
	assert.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

// readUntil skips events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ auction.EventType) auction.Event {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("never received %s event", typ)
	return auction.Event{}
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	assert.NoError(t, conn.WriteJSON(cmd))
}

func TestConnectReceivesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "team=teamA")

	ev := readEvent(t, conn)
	assert.Equal(t, auction.EventTypeSnapshot, ev.Type)

	var snap auction.SnapshotPayload
	assert.NoError(t, json.Unmarshal(ev.Data, &snap))
	check.False(t, snap.Open)
	check.Equal(t, auction.PlaceholderTitle, snap.Title)
}

func TestTeamConnectionRequiresTeam(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	check.Error(t, err)
	assert.NotNil(t, resp)
	check.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHostOpensLotAllClientsSee(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	team := env.dial(t, "team=teamA")
	readEvent(t, host) // snapshot
	readEvent(t, team) // snapshot

	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})

	for _, conn := range []*websocket.Conn{host, team} {
		ev := readUntil(t, conn, auction.EventTypeQuestion)
		var p auction.QuestionPayload
		assert.NoError(t, json.Unmarshal(ev.Data, &p))
		check.Equal(t, "Graph Theory", p.Title)
	}
}

func TestBidAckGoesToSenderOnly(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	teamA := env.dial(t, "team=teamA")
	teamB := env.dial(t, "team=teamB")
	for _, c := range []*websocket.Conn{host, teamA, teamB} {
		readEvent(t, c) // snapshot
	}

	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})
	for _, c := range []*websocket.Conn{host, teamA, teamB} {
		readUntil(t, c, auction.EventTypeQuestion)
	}

	send(t, teamA, Command{Action: ActionBid, Team: "teamA", Amount: int64Ptr(100)})

	// The bidder gets an ack and the broadcast; everyone else only the
	// broadcast.
	sawAck := false
	sawBid := false
	for i := 0; i < 2; i++ {
		ev := readEvent(t, teamA)
		switch ev.Type {
		case auction.EventTypeBidAck:
			var ack auction.BidAckPayload
			assert.NoError(t, json.Unmarshal(ev.Data, &ack))
			check.True(t, ack.Accepted)
			sawAck = true
		case auction.EventTypeCurrBid:
			sawBid = true
		}
	}
	check.True(t, sawAck)
	check.True(t, sawBid)

	ev := readUntil(t, teamB, auction.EventTypeCurrBid)
	var bid auction.CurrBidPayload
	assert.NoError(t, json.Unmarshal(ev.Data, &bid))
	check.Equal(t, "teamA", bid.Team)
	check.Equal(t, int64(100), bid.Amount)

	readUntil(t, host, auction.EventTypeCurrBid)
}

func TestRejectedBidAcksWithoutBroadcast(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	teamA := env.dial(t, "team=teamA")
	teamB := env.dial(t, "team=teamB")
	for _, c := range []*websocket.Conn{host, teamA, teamB} {
		readEvent(t, c)
	}

	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})
	for _, c := range []*websocket.Conn{host, teamA, teamB} {
		readUntil(t, c, auction.EventTypeQuestion)
	}

	send(t, teamA, Command{Action: ActionBid, Team: "teamA", Amount: int64Ptr(100)})
	readUntil(t, teamA, auction.EventTypeBidAck)
	readUntil(t, teamB, auction.EventTypeCurrBid)

	// Tie bid: rejected, ack to sender, nothing broadcast.
	send(t, teamB, Command{Action: ActionBid, Team: "teamB", Amount: int64Ptr(100)})
	ev := readUntil(t, teamB, auction.EventTypeBidAck)
	var ack auction.BidAckPayload
	assert.NoError(t, json.Unmarshal(ev.Data, &ack))
	check.False(t, ack.Accepted)
	check.Equal(t, string(auction.RejectTooLow), ack.Reason)

	// A follow-up accepted bid is the very next broadcast teamA sees,
	// proving the rejection emitted nothing.
	send(t, teamB, Command{Action: ActionBid, Team: "teamB", Amount: int64Ptr(150)})
	ev = readUntil(t, teamA, auction.EventTypeCurrBid)
	var bid auction.CurrBidPayload
	assert.NoError(t, json.Unmarshal(ev.Data, &bid))
	check.Equal(t, "teamB", bid.Team)
	check.Equal(t, int64(150), bid.Amount)
}

func TestNonHostCannotOperate(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	team := env.dial(t, "team=teamA")
	readEvent(t, host)
	readEvent(t, team)

	// A participant trying host actions changes nothing: the lot it
	// "opens" never broadcasts, and a subsequent real open does.
	send(t, team, Command{Action: ActionHost, Index: intPtr(3)})
	send(t, team, Command{Action: ActionAbort})

	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})
	ev := readUntil(t, team, auction.EventTypeQuestion)
	var p auction.QuestionPayload
	assert.NoError(t, json.Unmarshal(ev.Data, &p))
	check.Equal(t, "Graph Theory", p.Title)
}

func TestSettleBroadcastsUpdateInfo(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	team := env.dial(t, "team=teamB")
	readEvent(t, host)
	readEvent(t, team)

	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})
	readUntil(t, host, auction.EventTypeQuestion)
	readUntil(t, team, auction.EventTypeQuestion)

	send(t, team, Command{Action: ActionBid, Team: "teamB", Amount: int64Ptr(150)})
	readUntil(t, host, auction.EventTypeCurrBid)

	send(t, host, Command{Action: ActionSettle})

	for _, conn := range []*websocket.Conn{host, team} {
		ev := readUntil(t, conn, auction.EventTypeUpdateInfo)
		var p auction.UpdateInfoPayload
		assert.NoError(t, json.Unmarshal(ev.Data, &p))
		check.Equal(t, "Graph Theory", p.Title)
		check.Equal(t, "teamB", p.Team)
		check.Equal(t, int64(150), p.Amount)
	}
}

func TestMalformedCommandIgnored(t *testing.T) {
	env := newTestEnv(t)
	host := env.dial(t, "role=host")
	team := env.dial(t, "team=teamA")
	readEvent(t, host)
	readEvent(t, team)

	assert.NoError(t, team.WriteMessage(websocket.TextMessage, []byte(`{"action":"bid","team":"teamA","amount":"lots"}`)))

	// The connection survives and the channel keeps working.
	send(t, host, Command{Action: ActionHost, Index: intPtr(3)})
	readUntil(t, team, auction.EventTypeQuestion)
}

func TestDirectSendAfterDisconnectDropsEvent(t *testing.T) {
	hub := NewHub(nil, DefaultConnectionConfig())
	conn := &Connection{
		ID:   "c1",
		Team: "teamA",
		Role: RoleTeam,
		Send: make(chan []byte, 1),
		hub:  hub,
	}
	hub.register(conn)

	// The write pump's deferred unregister can run while the read pump
	// still holds the connection to deliver a bid ack. The ack must be
	// dropped, not panic on the closed send channel.
	hub.unregister(conn)
	conn.sendEvent(auction.NewEvent(auction.EventTypeBidAck, auction.BidAckPayload{
		Accepted: true,
		Amount:   100,
	}))

	// The other pump's deferred unregister is a no-op, not a double close.
	hub.unregister(conn)
	check.Equal(t, 0, hub.ConnectionCount())
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
