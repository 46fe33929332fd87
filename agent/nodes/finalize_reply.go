package turnnode

import "context"

func FinalizeReply(_ context.Context, g *GraphState) (GraphOutput, error) {
	return GraphOutput{ConversationID: g.ConversationID, Reply: g.Reply}, nil
}
