// Package physics provides the rigid-body world the training environment
// drives.
//
// [World] is the complete surface the environment consumes: load and
// remove a body, resolve its joints, set joint position targets, advance
// time and query pose, velocity and joint states. Anything implementing
// it (a bridge to an external engine, a scripted test double) can stand
// in for the built-in simulator.
//
//   - [Sim]: reduced-order quadruped simulator integrated with any
//     [dynamo.Integrator]
//   - [Robot]: joint and mass description parsed from URDF
//   - [Rotate], [InverseRotate], [EulerFromQuaternion]: orientation helpers
//
// # Example
//
//	robot := physics.DefaultRobot()
//	world, _ := physics.NewWorld(robot, physics.DefaultWorldConfig())
//	h, _ := world.LoadBody(physics.SpawnPose(0.3))
//	_ = world.Advance(1.0 / 120)
//	pose, _ := world.BodyPose(h)
//
// # Thread Safety
//
// A World is owned by exactly one environment and is NOT safe for
// concurrent use. Run independent worlds for parallel rollouts.
package physics
