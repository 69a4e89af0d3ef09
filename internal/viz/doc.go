// Package viz renders a live terminal view of a robot episode.
//
// [Model] is a Bubble Tea program that steps an [env.Env] with a
// [policy.Policy] and shows a side view of the robot, the reward terms
// and a reward history chart.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S     - Single step while paused
//	R     - Start a new episode
//	Tab   - Cycle policy parameters
//	Up/K  - Increase parameter (+5%)
//	Down/J - Decrease parameter (-5%)
//	Q     - Quit
package viz
