// Package bridge provides an embeddable protocol bridge between a
// OneBot-style front WebSocket and an orchestration core.
//
// The bridge accepts one front connection at a time, classifies inbound
// frames, queues event frames for ordered dispatch, correlates response
// frames with outstanding action requests, and forwards translated
// payloads to the core over a self-healing client link.
//
// Basic usage:
//
//	b, err := bridge.New(bridge.Config{
//		Host:     "localhost",
//		Port:     8095,
//		CoreHost: "localhost",
//		CorePort: 8000,
//	}, bridge.WithLogger(myLogger))
//	if err != nil {
//		return err
//	}
//	if err := b.Start(ctx); err != nil {
//		return err
//	}
//	defer b.Stop()
package bridge
