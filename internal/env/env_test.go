package env

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/physics"
)

func zeroAction() []float32 { return make([]float32, ActionDim) }

func allFinite(obs Observation) bool {
	for _, v := range obs {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

var _ = Describe("Env", func() {
	var (
		world *fakeWorld
		e     *Env
		cfg   Config
	)

	BeforeEach(func() {
		world = newFakeWorld()
		cfg = DefaultConfig()
		cfg.Limits.MaxSteps = 5
		cfg.SuccessSteps = 2
	})

	JustBeforeEach(func() {
		var err error
		e, err = New(world, WithConfig(cfg), WithRand(rand.New(rand.NewSource(3))))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("rejects a nil world", func() {
			_, err := New(nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an invalid config", func() {
			bad := DefaultConfig()
			bad.Dt = 0
			_, err := New(world, WithConfig(bad))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Reset", func() {
		It("spawns an upright body at the configured height", func() {
			obs, info, err := e.Reset(ResetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(world.loads).To(Equal(1))
			Expect(world.pose.Position).To(Equal(r3.Vec{Z: 0.3}))
			Expect(obs.Gravity()).To(Equal([3]float32{0, 0, -1}))
			Expect(info.StepIndex).To(Equal(0))
			Expect(info.Status).To(Equal(Running))
			Expect(info.MissingJoints).To(BeEmpty())
			Expect(obs.PrevAction()).To(Equal(Action{}))
		})

		It("removes the previous body", func() {
			_, _, err := e.Reset(ResetOptions{})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = e.Reset(ResetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(world.loads).To(Equal(2))
			Expect(world.removes).To(Equal(1))
			Expect(world.live).To(HaveLen(1))
		})

		It("uses an explicit command unchanged in every observation", func() {
			cmd := Command{VX: 0.5, VY: -0.2, Yaw: 0.1}
			obs, info, err := e.Reset(ResetOptions{Command: &cmd})
			Expect(err).NotTo(HaveOccurred())
			Expect(obs.Command()).To(Equal(cmd))
			Expect(info.Command).To(Equal(cmd))
			for i := 0; i < 3; i++ {
				res, err := e.Step(zeroAction())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Observation.Command()).To(Equal(cmd))
			}
		})

		It("clamps an out of range command", func() {
			cmd := Command{VX: 3}
			obs, _, err := e.Reset(ResetOptions{Command: &cmd})
			Expect(err).NotTo(HaveOccurred())
			Expect(obs.Command().VX).To(Equal(float32(1)))
		})

		It("samples the same command for the same seed", func() {
			seed := int64(11)
			a, _, _ := e.Reset(ResetOptions{Seed: &seed})
			b, _, _ := e.Reset(ResetOptions{Seed: &seed})
			Expect(a.Command()).To(Equal(b.Command()))
			Expect(a.Command().VY).To(BeNumerically("<=", 0.5))
		})

		It("zero-pads joints missing from the robot", func() {
			world.names = append([]string{}, JointNames[:11]...)
			obs, info, err := e.Reset(ResetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(info.MissingJoints).To(ConsistOf("motor_back_right_lower_leg"))
			Expect(obs.JointPositions()[11]).To(BeZero())
		})

		It("returns load failures", func() {
			world.loadErr = dynamo.ErrAssetNotFound
			_, _, err := e.Reset(ResetOptions{})
			Expect(errors.Is(err, dynamo.ErrAssetNotFound)).To(BeTrue())
		})
	})

	Describe("Step", func() {
		It("fails before reset", func() {
			_, err := e.Step(zeroAction())
			Expect(err).To(MatchError(ErrNotReset))
		})

		It("rejects a wrong-length action", func() {
			_, _, _ = e.Reset(ResetOptions{})
			_, err := e.Step(make([]float32, 3))
			Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
		})

		It("applies, advances once and scores", func() {
			_, _, err := e.Reset(ResetOptions{})
			Expect(err).NotTo(HaveOccurred())

			res, err := e.Step(zeroAction())
			Expect(err).NotTo(HaveOccurred())
			Expect(world.advances).To(Equal(1))
			Expect(world.targets).To(HaveLen(NumJoints))
			Expect(res.Info.StepIndex).To(Equal(1))
			Expect(res.Terminated).To(BeFalse())
			Expect(res.Truncated).To(BeFalse())
			Expect(allFinite(res.Observation)).To(BeTrue())
			Expect(res.Reward).To(BeNumerically("~", res.Info.Terms.Total(), 1e-12))
		})

		It("records the clamped action in the next observation", func() {
			_, _, _ = e.Reset(ResetOptions{})
			act := zeroAction()
			act[0] = 10
			act[1] = float32(math.NaN())
			act[2] = 0.4
			res, err := e.Step(act)
			Expect(err).NotTo(HaveOccurred())
			prev := res.Observation.PrevAction()
			Expect(prev[0]).To(Equal(AngleLimit))
			Expect(prev[1]).To(BeZero())
			Expect(prev[2]).To(Equal(float32(0.4)))
			for _, tg := range world.targets {
				Expect(tg.angle).To(BeNumerically("<=", math.Pi))
				Expect(tg.angle).To(BeNumerically(">=", -math.Pi))
			}
		})

		It("truncates at the step limit and reports success", func() {
			_, _, _ = e.Reset(ResetOptions{})
			var res StepResult
			for i := 0; i < cfg.Limits.MaxSteps; i++ {
				var err error
				res, err = e.Step(zeroAction())
				Expect(err).NotTo(HaveOccurred())
				if i < cfg.Limits.MaxSteps-1 {
					Expect(res.Truncated).To(BeFalse())
				}
				Expect(res.Info.Success).To(Equal(i+1 > cfg.SuccessSteps))
			}
			Expect(res.Truncated).To(BeTrue())
			Expect(res.Terminated).To(BeFalse())
			Expect(res.Info.Status).To(Equal(Truncated))
		})

		It("terminates when the body falls", func() {
			world.onAdvance = func(w *fakeWorld) { w.pose.Position.Z = 0.05 }
			_, _, _ = e.Reset(ResetOptions{})
			res, err := e.Step(zeroAction())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Terminated).To(BeTrue())
			Expect(res.Info.Status).To(Equal(TerminatedFallen))
			Expect(res.Info.Success).To(BeFalse())
		})

		It("terminates when the body tips", func() {
			world.onAdvance = func(w *fakeWorld) { w.pose.Orientation = physics.QuaternionFromEuler(1.2, 0, 0) }
			_, _, _ = e.Reset(ResetOptions{})
			res, _ := e.Step(zeroAction())
			Expect(res.Info.Status).To(Equal(TerminatedTipped))
		})

		It("turns a diverged world into a finite terminal step", func() {
			world.onAdvance = func(w *fakeWorld) {
				w.pose.Position.Z = math.NaN()
				w.vel.Linear.X = math.Inf(1)
			}
			_, _, _ = e.Reset(ResetOptions{})
			res, err := e.Step(zeroAction())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Info.Status).To(Equal(TerminatedDiverged))
			Expect(res.Terminated).To(BeTrue())
			Expect(allFinite(res.Observation)).To(BeTrue())
			Expect(math.IsNaN(res.Reward)).To(BeFalse())
		})

		It("treats a non-finite velocity as divergence", func() {
			world.onAdvance = func(w *fakeWorld) { w.vel.Angular.Y = math.NaN() }
			_, _, _ = e.Reset(ResetOptions{})
			res, _ := e.Step(zeroAction())
			Expect(res.Info.Status).To(Equal(TerminatedDiverged))
		})
	})

	Describe("Close", func() {
		It("is idempotent and closes the world once", func() {
			Expect(e.Close()).To(Succeed())
			Expect(e.Close()).To(Succeed())
			Expect(world.closes).To(Equal(1))
		})

		It("rejects further use", func() {
			_, _, _ = e.Reset(ResetOptions{})
			Expect(e.Close()).To(Succeed())
			_, err := e.Step(zeroAction())
			Expect(err).To(MatchError(dynamo.ErrClosed))
			_, _, err = e.Reset(ResetOptions{})
			Expect(err).To(MatchError(dynamo.ErrClosed))
		})
	})
})

var _ = Describe("Env on the built-in world", func() {
	It("resets and takes zero-action steps without terminating", func() {
		w, err := physics.NewWorld(physics.DefaultRobot(), physics.DefaultWorldConfig())
		Expect(err).NotTo(HaveOccurred())
		e, err := New(w, WithRand(rand.New(rand.NewSource(1))))
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		obs, info, err := e.Reset(ResetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(info.MissingJoints).To(BeEmpty())
		Expect(ObservationSpace().Contains(obs[:])).To(BeTrue())

		for i := 0; i < 60; i++ {
			res, err := e.Step(zeroAction())
			Expect(err).NotTo(HaveOccurred())
			Expect(allFinite(res.Observation)).To(BeTrue())
			Expect(ObservationSpace().Contains(res.Observation[:])).To(BeTrue())
			Expect(math.IsNaN(res.Reward)).To(BeFalse())
			Expect(res.Terminated).To(BeFalse())
		}
	})
})
