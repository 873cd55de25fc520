package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- Graph Attributes ---

const (
	// AttrGraphNodeID is the id of the node being processed
	AttrGraphNodeID = "graph.node.id"

	// AttrGraphNodeKind is the kind of the node (prompt or userInput)
	AttrGraphNodeKind = "graph.node.kind"

	// AttrGraphNodeCount is the number of nodes in a graph
	AttrGraphNodeCount = "graph.nodes"

	// AttrGraphEdgeCount is the number of edges in a graph
	AttrGraphEdgeCount = "graph.edges"

	// AttrGraphLevel is the topological level being executed
	AttrGraphLevel = "graph.level"

	// AttrGraphLevelSize is the number of nodes in the level being executed
	AttrGraphLevelSize = "graph.level.size"

	// AttrGraphGrounding reports whether Google Search grounding was requested
	AttrGraphGrounding = "graph.node.grounding"
)

// --- Run Attributes ---

const (
	// AttrRunOutputs is the number of outputs returned by a run
	AttrRunOutputs = "run.outputs"

	// AttrRunMerged is the number of outputs merged into the model
	AttrRunMerged = "run.merged"
)

// --- Chat Attributes ---

const (
	// AttrChatSessionID is the id of the chat session
	AttrChatSessionID = "chat.session.id"

	// AttrChatHistoryLength is the number of turns sent as history
	AttrChatHistoryLength = "chat.history.length"

	// AttrChatFrames is the number of frames applied during a stream
	AttrChatFrames = "chat.frames"

	// AttrChatSkippedFrames is the number of frames dropped because their payload was malformed
	AttrChatSkippedFrames = "chat.frames.skipped"

	// AttrChatFallbackModel is the model the stream fell back to
	AttrChatFallbackModel = "chat.fallback.model"
)

// --- LLM Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g. "gemini")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier (e.g. "gemini-2.5-flash")
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStreaming reports whether the request used the streaming endpoint
	AttrLLMStreaming = "llm.streaming"

	// AttrLLMTokensTotal is the total number of tokens
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMGroundingQueries is the number of web search queries used for grounding
	AttrLLMGroundingQueries = "llm.grounding.queries"

	// AttrLLMGroundingSources is the number of web sources a grounded answer cites
	AttrLLMGroundingSources = "llm.grounding.sources"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRoute is the matched server route
	AttrHTTPRoute = "http.route"

	// AttrHTTPRequestID is the request id assigned by the server
	AttrHTTPRequestID = "http.request.id"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"

	// AttrHTTPDuration is the duration of the HTTP round-trip
	AttrHTTPDuration = "http.request.duration"
)

// --- Transcript Attributes ---

const (
	// AttrTranscriptTurns is the number of turns written to or read from a transcript
	AttrTranscriptTurns = "transcript.turns"

	// AttrTranscriptBackend is the storage backend of the transcript (memory, sqlite)
	AttrTranscriptBackend = "transcript.backend"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanEditorRun is the span of a client-side graph run
	SpanEditorRun = "editor.run"

	// SpanChatSend is the span of a chat send, from request to end of stream
	SpanChatSend = "chat.send"

	// SpanClientRun is the span of one run request sent by the client
	SpanClientRun = "client.run"

	// SpanClientChatStream is the span of one chat stream opened by the client,
	// ending when its body is closed
	SpanClientChatStream = "client.chat_stream"

	// SpanSequenceRun is the span of a server-side graph execution
	SpanSequenceRun = "sequence.run"

	// SpanSequenceNode is the span of a single node execution
	SpanSequenceNode = "sequence.node"

	// SpanLLMRequest is the span name for LLM API requests
	SpanLLMRequest = "llm.request"

	// SpanChatStreamServe is the span of a server-side chat stream
	SpanChatStreamServe = "server.chat_stream"
)

// --- Event Names ---

const (
	// EventLLMRequestStart marks the start of an LLM request
	EventLLMRequestStart = "llm.request.start"

	// EventLLMRequestEnd marks the end of an LLM request
	EventLLMRequestEnd = "llm.request.end"

	// EventChatFrameSkipped marks a streamed frame whose payload could not be parsed
	EventChatFrameSkipped = "chat.frame.skipped"

	// EventChatFallback marks a switch to the next model after a rate limit
	EventChatFallback = "chat.fallback"

	// EventSequenceLevelStart marks the start of a topological level
	EventSequenceLevelStart = "sequence.level.start"

	// EventTranscriptAppend marks turns written to a transcript
	EventTranscriptAppend = "transcript.append"

	// EventTranscriptClear marks a transcript being cleared
	EventTranscriptClear = "transcript.clear"
)

// --- Metric Names ---

const (
	// MetricRunCount counts graph runs by status
	MetricRunCount = "sequencer.run.count"

	// MetricRunDuration is the histogram of graph run durations in seconds
	MetricRunDuration = "sequencer.run.duration"

	// MetricNodeDuration is the histogram of single node executions in seconds
	MetricNodeDuration = "sequencer.node.duration"

	// MetricChatSendCount counts chat sends by status
	MetricChatSendCount = "sequencer.chat.send.count"

	// MetricChatFrameCount counts applied stream frames
	MetricChatFrameCount = "sequencer.chat.frame.count"

	// MetricChatFallbackCount counts rate-limit fallbacks
	MetricChatFallbackCount = "sequencer.chat.fallback.count"

	// MetricLLMRequestCount counts LLM API requests by status
	MetricLLMRequestCount = "sequencer.llm.request.count"

	// MetricClientRequestCount counts requests sent by the client to the service
	MetricClientRequestCount = "sequencer.client.request.count"
)
