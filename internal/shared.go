package inops

import (
	"github.com/Pentahill/inopsflow/internal/protocol"
	"github.com/Pentahill/inopsflow/internal/transport"
)

type FlowRequest = protocol.FlowRequest
type FlowStartResponse = protocol.FlowStartResponse
type SearchResult = protocol.SearchResult
type Event = protocol.Event
type Sink = transport.Sink
type Subscription = transport.Subscription
