/*
Package resilience provides the circuit breaker that guards worker launches.

A breaker counts consecutive failures. Once Threshold is reached it opens and
Allow fails fast with ErrOpen. After Cooldown one probe is admitted; its
outcome closes the breaker or opens it again.

	breaker := resilience.New("worker", resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	})

	attempt, err := breaker.Allow()
	if err != nil {
		return err
	}
	err = launch()
	attempt.Done(err == nil)

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                  ^                     |
	                                  +-----[failure]-------+
*/
package resilience
