// Package policy provides reference controllers that drive an [env.Env]
// without a trained network.
//
//   - [Zero]: all joints at zero
//   - [Stand]: the controller's default standing pose
//   - [Random]: uniform samples from the action space
//   - [Gait]: open-loop trot around the standing pose
//   - [Replay]: a recorded action sequence
//
// [Gait] implements [dynamo.Configurable] for live tuning.
package policy
