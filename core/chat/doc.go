// Package chat holds the client side of a streaming chat conversation.
//
// Raw stream bytes go through a [FrameBuffer], which cuts them into
// "\n\n"-delimited frames; [ParseFrame] decodes each "data: {json}" frame and
// [Apply] folds it into a [StreamState]. Apply is a pure transition: text
// frames grow the live model turn, info and error frames become system turns
// inserted just before it. A [Reassembler] drives that loop over an
// io.Reader, and [Session] ties it to a [Streamer], a busy flag and an
// optional transcript recorder.
//
//	session := chat.NewSession(client, chat.WithModel(protocol.ModelGeminiFlash))
//	if err := session.Send(ctx, "Summarize {{ticker}} news"); err != nil {
//	    // the history already holds an [ERROR] turn
//	}
//	for _, turn := range session.Turns() {
//	    fmt.Println(turn.Role, turn.Text)
//	}
package chat
