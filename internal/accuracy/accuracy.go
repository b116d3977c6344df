package accuracy

// Of returns the share of correct answers in history as a percentage in
// [0, 100]. An empty history has accuracy 0.
func Of(history []bool) float64 {
	correct := 0
	for _, ok := range history {
		if ok {
			correct++
		}
	}
	return Counts(len(history), correct)
}

// Counts computes the same percentage from answer counters.
func Counts(total, correct int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// After returns the accuracy before and after appending one answer to
// history. history is not modified.
func After(history []bool, correct bool) (before, after float64) {
	c := 0
	for _, ok := range history {
		if ok {
			c++
		}
	}
	if correct {
		return Counts(len(history), c), Counts(len(history)+1, c+1)
	}
	return Counts(len(history), c), Counts(len(history)+1, c)
}
