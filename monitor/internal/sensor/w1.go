package sensor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Tummers/Precision-Refrigerator/pkg/types"
)

// 1-Wire family codes, the prefix of a slave name.
const (
	familyDS18S20 = "10"
	familyDS18B20 = "28"
)

// Resolutions of the supported 1-Wire thermometers at default settings.
const (
	ResolutionDS18B20 = 0.0625
	ResolutionDS18S20 = 0.5
)

// powerOnMilli is the scratchpad value a DS18x20 reports after reset.
const powerOnMilli = 85000

// W1 reads a DS18B20 or DS18S20 through the kernel w1_therm driver, which
// exposes each slave as <base>/<device>/w1_slave.
type W1 struct {
	device string
	path   string
}

// NewW1 returns a reader for the given slave under baseDir.
func NewW1(baseDir, device string) *W1 {
	return &W1{
		device: device,
		path:   filepath.Join(baseDir, device, "w1_slave"),
	}
}

// Read triggers a conversion by reading w1_slave and parses the result.
// The kernel read blocks for the conversion time (up to 750 ms).
func (w *W1) Read(ctx context.Context) (types.Reading, error) {
	if err := ctx.Err(); err != nil {
		return types.Reading{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return types.Reading{}, fmt.Errorf("sensor %s: %w", w.device, err)
	}
	c, err := parseW1Slave(data)
	if err != nil {
		return types.Reading{}, fmt.Errorf("sensor %s: %w", w.device, err)
	}
	return types.Reading{Celsius: c, At: clock()}, nil
}

// Resolution returns the step size of the slave's family.
func (w *W1) Resolution() float64 {
	switch {
	case strings.HasPrefix(w.device, familyDS18B20+"-"):
		return ResolutionDS18B20
	case strings.HasPrefix(w.device, familyDS18S20+"-"):
		return ResolutionDS18S20
	default:
		return 0
	}
}

// parseW1Slave decodes w1_therm output:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(data []byte) (float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return 0, ErrNoTemperature
	}
	if !strings.HasSuffix(strings.TrimSpace(sc.Text()), "YES") {
		return 0, ErrCRC
	}
	if !sc.Scan() {
		return 0, ErrNoTemperature
	}
	line := sc.Text()
	i := strings.LastIndex(line, "t=")
	if i < 0 {
		return 0, ErrNoTemperature
	}
	milli, err := strconv.Atoi(strings.TrimSpace(line[i+2:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoTemperature, err)
	}
	if milli == powerOnMilli {
		return 0, ErrPowerOnReset
	}
	return float64(milli) / 1000, nil
}
