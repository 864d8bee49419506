package feature

import (
	"testing"

	"github.com/pkg/profile"
)

func BenchmarkDerive(b *testing.B) {
	rides := make([]int64, 4000)
	for i := range rides {
		rides[i] = int64(1 + (i%24)/3 + (i*7)%5)
	}
	base := testBase(rides)
	cal := testCalendar(b)

	defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Derive(base, cal, DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}
