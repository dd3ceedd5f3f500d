package door

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

var ads1115Channels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADS1115 reads the beam receiver through an ADS1115 converter on I2C.
type ADS1115 struct {
	bus i2c.BusCloser
	pin ads1x15.PinADC
}

// OpenADS1115 initialises the host drivers, opens the I2C bus (empty name
// selects the first bus) and configures a single-ended channel.
func OpenADS1115(busName string, channel int, maxVoltage physic.ElectricPotential, rate physic.Frequency) (*ADS1115, error) {
	if channel < 0 || channel >= len(ads1115Channels) {
		return nil, fmt.Errorf("ads1115: channel %d out of range 0-3", channel)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ads1115: %w", err)
	}

	pin, err := adc.PinForChannel(ads1115Channels[channel], maxVoltage, rate, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ads1115 channel %d: %w", channel, err)
	}

	return &ADS1115{bus: bus, pin: pin}, nil
}

// Read performs one conversion.
func (a *ADS1115) Read() (analog.Sample, error) {
	return a.pin.Read()
}

// Close halts the channel and releases the bus.
func (a *ADS1115) Close() error {
	var errs []error
	if err := a.pin.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt pin: %w", err))
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
