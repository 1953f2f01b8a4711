package gopigo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "gobot.io/x/gobot/platforms/dexter/gopigo3"

	"Roamer/internal/device"
)

type fakeBoard struct {
	dps   map[g.Motor]int
	enc   map[g.Motor]int64
	servo []uint16
	err   error
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{dps: map[g.Motor]int{}, enc: map[g.Motor]int64{}}
}

func (b *fakeBoard) SetMotorDps(m g.Motor, dps int) error {
	b.dps[m] = dps
	return b.err
}

func (b *fakeBoard) GetMotorEncoder(m g.Motor) (int64, error) { return b.enc[m], b.err }

func (b *fakeBoard) SetServo(_ g.Servo, us uint16) error {
	b.servo = append(b.servo, us)
	return b.err
}

type fakeRanger struct{ cm int }

func (f fakeRanger) Distance() (int, error) { return f.cm, nil }

type fakeAnalog struct {
	v   int
	err error
}

func (f fakeAnalog) Read() (int, error) { return f.v, f.err }

func newTestRobot(b *fakeBoard) (*Robot, *[]time.Duration) {
	r := newRobot(Config{}, b, fakeRanger{cm: 42}, fakeAnalog{v: 812})
	var waits []time.Duration
	r.sleep = func(d time.Duration) { waits = append(waits, d) }
	return r, &waits
}

func TestSetWheels_ConvertsToDps(t *testing.T) {
	b := newFakeBoard()
	r, _ := newTestRobot(b)

	require.NoError(t, r.SetWheels(100, -100))
	k := DefaultConfig().mmPerDegree()
	assert.Equal(t, int(math.Round(100/k)), b.dps[g.MOTOR_LEFT])
	assert.Equal(t, -int(math.Round(100/k)), b.dps[g.MOTOR_RIGHT])
}

func TestPoll_Odometry(t *testing.T) {
	b := newFakeBoard()
	r, _ := newTestRobot(b)
	k := DefaultConfig().mmPerDegree()

	b.enc[g.MOTOR_LEFT], b.enc[g.MOTOR_RIGHT] = 1000, 2000
	s, err := r.Poll()
	require.NoError(t, err)
	assert.Zero(t, s.Distance, "first poll sets the baseline")
	assert.False(t, s.Bumped())
	for _, v := range s.Cliff {
		assert.Equal(t, FloorLevel, v)
	}

	b.enc[g.MOTOR_LEFT] += 360
	b.enc[g.MOTOR_RIGHT] += 360
	s, _ = r.Poll()
	assert.InDelta(t, 360*k, s.Distance, 1e-9)
	assert.InDelta(t, 0, s.Angle, 1e-9)

	b.enc[g.MOTOR_LEFT] -= 100
	b.enc[g.MOTOR_RIGHT] += 100
	s, _ = r.Poll()
	assert.InDelta(t, 0, s.Distance, 1e-9)
	assert.InDelta(t, 200*k/DefaultConfig().WheelBase*180/math.Pi, s.Angle, 1e-9)
}

func TestPoll_EncoderError(t *testing.T) {
	b := newFakeBoard()
	b.err = errors.New("spi")
	r, _ := newTestRobot(b)
	_, err := r.Poll()
	assert.ErrorContains(t, err, "left encoder")
}

func TestPointHead_WaitsForTravel(t *testing.T) {
	b := newFakeBoard()
	r, waits := newTestRobot(b)
	cfg := DefaultConfig()

	require.NoError(t, r.PointHead(0))
	require.NoError(t, r.PointHead(180))
	require.NoError(t, r.PointHead(180))

	assert.Equal(t, []uint16{uint16(cfg.ServoMin), uint16(cfg.ServoMax), uint16(cfg.ServoMax)}, b.servo)
	require.Len(t, *waits, 3)
	assert.Equal(t, cfg.SweepTime, (*waits)[1])
	assert.Zero(t, (*waits)[2])

	assert.Error(t, r.PointHead(-1))
}

func TestReadings(t *testing.T) {
	r, _ := newTestRobot(newFakeBoard())
	cm, err := r.ReadPing()
	require.NoError(t, err)
	assert.Equal(t, 42.0, cm)

	raw, err := r.ReadIR()
	require.NoError(t, err)
	assert.Equal(t, 812, raw)

	r.ir = fakeAnalog{err: errors.New("adc")}
	_, err = r.ReadIR()
	assert.Error(t, err)
}

func TestCalibrateHead_EndsCentred(t *testing.T) {
	b := newFakeBoard()
	r, _ := newTestRobot(b)
	require.NoError(t, r.CalibrateHead())
	cfg := DefaultConfig()
	assert.Equal(t, uint16((cfg.ServoMin+cfg.ServoMax)/2), b.servo[len(b.servo)-1])
}

var (
	_ device.Base           = (*Robot)(nil)
	_ device.Scanner        = (*Robot)(nil)
	_ device.HeadCalibrator = (*Robot)(nil)
)
