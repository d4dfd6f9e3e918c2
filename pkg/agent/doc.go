// Package agent runs user turns through a model/tool loop until the
// model produces a final answer.
//
// Invariants:
// - The message log is append-only and starts with a system message.
// - Tool calls within one reply dispatch sequentially in emission order.
// - Errors never escape RunTurn; a failed turn's partial log is discarded.
// - Model invocations per turn are capped.
//
// Usage:
//
//	engine, _ := agent.New(agent.Config{
//		Catalog:   cat,
//		Prompts:   store,
//		NewHandle: factory,
//	})
//	result := engine.RunTurn(ctx, agent.TurnRequest{
//		ModelID:  "azure:gpt-4o",
//		UserText: "What branches does golang/go have?",
//		Identity: identity,
//	})
//	_ = result.Answer
package agent
