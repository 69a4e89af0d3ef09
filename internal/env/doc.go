// Package env is the bridge between the physics world and a trainer.
//
// An [Env] owns one [physics.World] and exposes the reset/step contract a
// training orchestrator consumes. Its numeric layout is a deployment
// contract: the policy trained against it runs unchanged on the robot
// controller, so the 42-value observation and 12-value action orderings
// below must never change.
//
//	offset  size  slot          bounds
//	0       3     gravity_body  [-1, 1]
//	3       12    joint_pos     [-pi, pi]
//	15      12    joint_vel     [-50, 50]
//	27      12    prev_action   [-pi, pi]
//	39      3     command       [-1, 1]
//
// The pieces are usable on their own: [ObservationEncoder],
// [ActionApplier], [RewardShaper] and [EpisodeController].
//
// An Env is single-threaded. Scale out by running independent instances,
// each with its own world.
package env
