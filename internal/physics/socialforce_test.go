package physics_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/physics"
)

func agent(pos, goal dynamo.Vec2, radius float64) *dynamo.Agent {
	a, err := dynamo.NewAgent(pos, goal, 1.3, radius, 80, 0.5)
	Expect(err).NotTo(HaveOccurred())
	return a
}

// countingPairs wraps AllPairs and records how often it was used.
type countingPairs struct{ calls int }

func (c *countingPairs) Accumulate(agents []*dynamo.Agent, force physics.PairForce) ([]dynamo.Vec2, error) {
	c.calls++
	return physics.AllPairs{}.Accumulate(agents, force)
}

var _ = Describe("SocialForce", func() {
	var sf *physics.SocialForce

	BeforeEach(func() {
		var err error
		sf, err = physics.New(physics.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("rejects non-positive constants",
		func(p physics.Params) {
			_, err := physics.New(p)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		},
		Entry("A", physics.Params{A: 0, B: 0.08, K: 1.2e5, Kappa: 2.4e5}),
		Entry("B", physics.Params{A: 2e3, B: -1, K: 1.2e5, Kappa: 2.4e5}),
		Entry("k", physics.Params{A: 2e3, B: 0.08, K: 0, Kappa: 2.4e5}),
		Entry("kappa", physics.Params{A: 2e3, B: 0.08, K: 1.2e5, Kappa: math.NaN()}),
	)

	It("ramps up only positive arguments", func() {
		Expect(physics.RampUp(0.2)).To(Equal(0.2))
		Expect(physics.RampUp(0)).To(Equal(0.0))
		Expect(physics.RampUp(-3)).To(Equal(0.0))
	})

	Describe("ForceBetween", func() {
		It("is exactly antisymmetric", func() {
			rng := rand.New(rand.NewSource(3))
			for n := 0; n < 500; n++ {
				i := agent(dynamo.V(rng.Float64()*4, rng.Float64()*4), dynamo.V(10, 10), 0.2+rng.Float64()*0.2)
				j := agent(dynamo.V(rng.Float64()*4, rng.Float64()*4), dynamo.V(-10, 0), 0.2+rng.Float64()*0.2)
				i.Velocity = dynamo.V(rng.NormFloat64(), rng.NormFloat64())
				j.Velocity = dynamo.V(rng.NormFloat64(), rng.NormFloat64())

				fij, err := sf.ForceBetween(i, j)
				Expect(err).NotTo(HaveOccurred())
				fji, err := sf.ForceBetween(j, i)
				Expect(err).NotTo(HaveOccurred())

				Expect(fji).To(Equal(fij.Neg()))
			}
		})

		It("rejects coincident agents", func() {
			i := agent(dynamo.V(1, 1), dynamo.V(5, 5), 0.3)
			j := agent(dynamo.V(1, 1), dynamo.V(0, 5), 0.3)
			_, err := sf.ForceBetween(i, j)
			Expect(err).To(MatchError(dynamo.ErrDegenerateGeometry))
		})

		It("has no compression or friction term without overlap", func() {
			i := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			j := agent(dynamo.V(0.6, 0.2), dynamo.V(-10, 0), 0.3)
			i.Velocity = dynamo.V(1, 0)
			j.Velocity = dynamo.V(-1, 0.5)

			soft, err := physics.New(physics.Params{A: 2e3, B: 0.08, K: 1, Kappa: 1})
			Expect(err).NotTo(HaveOccurred())

			f1, err := sf.ForceBetween(i, j)
			Expect(err).NotTo(HaveOccurred())
			f2, err := soft.ForceBetween(i, j)
			Expect(err).NotTo(HaveOccurred())
			Expect(f1).To(Equal(f2))

			d := i.Position.Dist(j.Position)
			Expect(f1.Norm()).To(BeNumerically("~", 2e3*math.Exp((0.6-d)/0.08), 1e-9))
		})

		It("pushes overlapping agents apart along the line of centres", func() {
			i := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			j := agent(dynamo.V(0.4, 0), dynamo.V(-10, 0), 0.3)

			f, err := sf.ForceBetween(i, j)
			Expect(err).NotTo(HaveOccurred())

			exp := 2e3 * math.Exp(0.2/0.08)
			compression := 1.2e5 * (0.6 - 0.4)
			Expect(f.Y).To(Equal(0.0))
			Expect(f.X).To(BeNumerically("<", 0))
			Expect(-f.X).To(BeNumerically("~", exp+compression, 1e-6))

			g, err := sf.ForceBetween(j, i)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.X).To(BeNumerically(">", 0))
			Expect(g.Y).To(Equal(0.0))
		})

		It("adds sliding friction proportional to relative tangential speed", func() {
			i := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			j := agent(dynamo.V(0.4, 0), dynamo.V(-10, 0), 0.3)
			j.Velocity = dynamo.V(0, 1)

			f, err := sf.ForceBetween(i, j)
			Expect(err).NotTo(HaveOccurred())

			// n = (-1, 0), t = (0, -1), dv_t = (0, 1)·t = -1.
			Expect(f.Y).To(BeNumerically("~", 2.4e5*0.2, 1e-6))
		})
	})

	Describe("ForceFromWall", func() {
		wall := dynamo.Wall{A: dynamo.V(-5, 0), B: dynamo.V(5, 0)}

		It("repels along the wall normal", func() {
			a := agent(dynamo.V(1, 0.5), dynamo.V(10, 0.5), 0.3)
			f, err := sf.ForceFromWall(a, wall)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.X).To(BeNumerically("~", 0, 1e-12))
			Expect(f.Y).To(BeNumerically("~", 2e3*math.Exp((0.3-0.5)/0.08), 1e-9))
		})

		It("uses the nearest endpoint beyond the segment", func() {
			a := agent(dynamo.V(5.3, 0.4), dynamo.V(10, 0.4), 0.3)
			f, err := sf.ForceFromWall(a, wall)
			Expect(err).NotTo(HaveOccurred())
			n, _ := dynamo.V(0.3, 0.4).Normalize()
			Expect(f.X / f.Norm()).To(BeNumerically("~", n.X, 1e-12))
			Expect(f.Y / f.Norm()).To(BeNumerically("~", n.Y, 1e-12))
		})

		It("opposes sliding along the wall while in contact", func() {
			a := agent(dynamo.V(0, 0.2), dynamo.V(10, 0.2), 0.3)
			a.Velocity = dynamo.V(1, 0)
			f, err := sf.ForceFromWall(a, wall)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.X).To(BeNumerically("~", -2.4e5*0.1, 1e-6))
			Expect(f.Y).To(BeNumerically(">", 1.2e5*0.1))
		})

		It("rejects an agent lying on the wall", func() {
			a := agent(dynamo.V(2, 0), dynamo.V(10, 3), 0.3)
			_, err := sf.ForceFromWall(a, wall)
			Expect(err).To(MatchError(dynamo.ErrDegenerateGeometry))
		})

		It("rejects a degenerate wall", func() {
			a := agent(dynamo.V(2, 1), dynamo.V(10, 3), 0.3)
			_, err := sf.ForceFromWall(a, dynamo.Wall{A: dynamo.V(1, 1), B: dynamo.V(1, 1)})
			Expect(err).To(MatchError(dynamo.ErrDegenerateGeometry))
		})
	})

	Describe("AgentForces", func() {
		It("conserves total momentum", func() {
			agents := []*dynamo.Agent{
				agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3),
				agent(dynamo.V(0.5, 0.1), dynamo.V(-10, 0), 0.3),
				agent(dynamo.V(0.2, 0.6), dynamo.V(0, -10), 0.25),
				agent(dynamo.V(-0.4, 0.3), dynamo.V(0, 10), 0.35),
			}
			agents[1].Velocity = dynamo.V(-1, 0.2)

			forces, err := sf.AgentForces(agents)
			Expect(err).NotTo(HaveOccurred())
			Expect(forces).To(HaveLen(4))

			var total dynamo.Vec2
			for _, f := range forces {
				total = total.Add(f)
			}
			Expect(total.Norm()).To(BeNumerically("<", 1e-6))
		})

		It("goes through the configured pair accumulator", func() {
			counter := &countingPairs{}
			custom, err := physics.New(physics.DefaultParams(), physics.WithPairAccumulator(counter))
			Expect(err).NotTo(HaveOccurred())

			_, err = custom.AgentForces([]*dynamo.Agent{
				agent(dynamo.V(0, 0), dynamo.V(1, 0), 0.3),
				agent(dynamo.V(1, 1), dynamo.V(1, 0), 0.3),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(counter.calls).To(Equal(1))
		})
	})

	Describe("Acceleration", func() {
		It("relaxes a lone agent towards its desired velocity", func() {
			a := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			acc, err := sf.Acceleration([]*dynamo.Agent{a}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc).To(HaveLen(1))
			Expect(acc[0].X).To(BeNumerically("~", 2.6, 1e-12))
			Expect(acc[0].Y).To(Equal(0.0))
		})

		It("adds interaction and wall forces divided by mass", func() {
			a := agent(dynamo.V(0, 0.5), dynamo.V(10, 0.5), 0.3)
			b := agent(dynamo.V(0, 1.5), dynamo.V(10, 1.5), 0.3)
			walls := []dynamo.Wall{{A: dynamo.V(-5, 0), B: dynamo.V(5, 0)}}

			acc, err := sf.Acceleration([]*dynamo.Agent{a, b}, walls)
			Expect(err).NotTo(HaveOccurred())

			fab, _ := sf.ForceBetween(a, b)
			fw, _ := sf.ForceFromWall(a, walls[0])
			want := dynamo.V(2.6, 0).Add(fab.Div(80)).Add(fw.Div(80))
			Expect(acc[0].ApproxEqual(want, 1e-9)).To(BeTrue())
		})

		It("does not mutate the agents", func() {
			a := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			b := agent(dynamo.V(0.4, 0), dynamo.V(-10, 0), 0.3)
			before := []dynamo.Agent{*a, *b}

			_, err := sf.Acceleration([]*dynamo.Agent{a, b}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(*a).To(Equal(before[0]))
			Expect(*b).To(Equal(before[1]))
		})

		It("fails for an agent standing on its goal", func() {
			a := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			a.Position = a.Goal
			_, err := sf.Acceleration([]*dynamo.Agent{a}, nil)
			Expect(err).To(MatchError(dynamo.ErrDegenerateGeometry))
		})

		It("fails for an agent with invalid parameters", func() {
			a := agent(dynamo.V(0, 0), dynamo.V(10, 0), 0.3)
			a.Mass = 0
			_, err := sf.Acceleration([]*dynamo.Agent{a}, nil)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})
})
