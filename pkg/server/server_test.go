package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTools plays a double round robin between four teams with match odds on every fixture
func testTools(t *testing.T) *tools.PoddsTools {
	t.Helper()
	teams := []string{"Arsenal", "Chelsea", "Everton", "Fulham"}
	start := time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)
	var matches []*podds.Match
	day := 0
	for round := 0; round < 2; round++ {
		for i, home := range teams {
			for j, away := range teams {
				if i == j {
					continue
				}
				m := podds.NewMatch()
				m.Div = "E0"
				m.Date = start.AddDate(0, 0, 7*day)
				m.HomeTeam = home
				m.AwayTeam = away
				m.HomeGoals = 1 + (3-i)/2 + day%2
				m.AwayGoals = (3 - j) / 2
				m.HomeOdds = 1.9
				m.DrawOdds = 3.5
				m.AwayOdds = 4.2
				matches = append(matches, m)
				day++
			}
		}
	}
	d, err := podds.NewDataset(matches)
	require.NoError(t, err)
	p, err := podds.NewPredictor(d, podds.DefaultConfig(), podds.WithSourceFactory(podds.SeededFactory(11)))
	require.NoError(t, err)
	return tools.NewPoddsTools(p)
}

// roundTrip feeds input to a stream server and returns each response line decoded
func roundTrip(t *testing.T, input string) []protocol.JsonRpcResponse {
	t.Helper()
	var out bytes.Buffer
	s := NewServer(transport.NewStreamTransport(strings.NewReader(input), &out), testTools(t))
	require.NoError(t, s.ProcessRequests())

	var responses []protocol.JsonRpcResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp protocol.JsonRpcResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), line)
		responses = append(responses, resp)
	}
	return responses
}

func TestServerLifecycle(t *testing.T) {
	responses := roundTrip(t, `
{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{}}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}
{"jsonrpc":"2.0","id":2,"method":"ping"}
`)
	require.Len(t, responses, 3, "the notification gets no reply")

	var initResult struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, "2025-03-26", initResult.ProtocolVersion)
	assert.Contains(t, initResult.Capabilities, "tools")
	assert.Equal(t, "podds", initResult.ServerInfo.Name)

	var list protocol.ToolsResponse
	require.NoError(t, json.Unmarshal(responses[1].Result, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"podds_list_teams", "podds_predict_match", "podds_value_bets"}, names)

	assert.EqualValues(t, 2, responses[2].ID)
	assert.Nil(t, responses[2].Error)
	assert.JSONEq(t, `{}`, string(responses[2].Result))
}

func TestServerToolsCall(t *testing.T) {
	responses := roundTrip(t, `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"podds_predict_match","arguments":{"home":"Arsenal","away":"Fulham","simulations":1000}}}`)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	assert.Equal(t, "a", responses[0].ID)

	var result protocol.ToolCallResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.False(t, result.IsError)

	var prediction podds.Prediction
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &prediction))
	assert.Equal(t, "Arsenal", prediction.Home)
	assert.Equal(t, "Fulham", prediction.Away)
	assert.InDelta(t, 1.0, prediction.Outcomes.Home+prediction.Outcomes.Draw+prediction.Outcomes.Away, 1e-9)
}

func TestServerErrors(t *testing.T) {
	responses := roundTrip(t, `
{"jsonrpc":"2.0","id":1,"method":"resources/list"}
{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"calculator","arguments":{}}}
{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"podds_predict_match","arguments":{"home":"Arsenal","away":"arsenal"}}}
{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"podds_predict_match","arguments":{"home":"Arsenl","away":"Chelsea"}}}
{"jsonrpc":"1.0","id":5,"method":"ping"}
{"jsonrpc":"2.0","id":6,"method":"tools/call"}
{"jsonrpc":"2.0","id":7,"method":"ping"}
{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"podds_predict_match","arguments":{"home":"Arsenal","away":"Chelsea","simulations":100000000}}}
`)
	require.Len(t, responses, 8, "every bad request is answered and the loop carries on")

	assert.Equal(t, protocol.ErrMethodNotFound, responses[0].Error.Code)
	assert.Equal(t, protocol.ErrMethodNotFound, responses[1].Error.Code)
	assert.Equal(t, protocol.ErrInvalidParams, responses[2].Error.Code)
	assert.Contains(t, responses[2].Error.Message, "against itself")
	assert.Equal(t, protocol.ErrInvalidParams, responses[3].Error.Code)
	assert.Contains(t, responses[3].Error.Message, "did you mean Arsenal?")
	assert.Equal(t, protocol.ErrInvalidRequest, responses[4].Error.Code)
	assert.Nil(t, responses[4].ID)
	assert.Equal(t, protocol.ErrInvalidParams, responses[5].Error.Code)
	assert.Nil(t, responses[6].Error)
	require.NotNil(t, responses[7].Error)
	assert.Equal(t, protocol.ErrInvalidParams, responses[7].Error.Code)
	assert.Contains(t, responses[7].Error.Message, "simulations must be between 0 and 10000")
}

func TestServerEndsCleanlyOnEOF(t *testing.T) {
	assert.Empty(t, roundTrip(t, ""))
}

func TestRegisterTool(t *testing.T) {
	s := NewServer(transport.NewStreamTransport(strings.NewReader(""), &bytes.Buffer{}), nil)
	assert.Empty(t, s.GetTools())

	s.RegisterTool(protocol.Tool{Name: "echo"}, func(params any) (any, error) { return params, nil })
	require.Len(t, s.GetTools(), 1)

	req, err := protocol.NewJsonRpcRequest("tools/call", protocol.ToolCallParams{Name: "echo", Arguments: map[string]any{"x": 1}}, 9)
	require.NoError(t, err)
	resp := s.HandleRequest(req)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.ToolCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.JSONEq(t, `{"x":1}`, result.Content[0].Text)

	// protocol methods are not callable as tools
	req, err = protocol.NewJsonRpcRequest("tools/call", protocol.ToolCallParams{Name: "initialize"}, 10)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrMethodNotFound, s.HandleRequest(req).Error.Code)
}
