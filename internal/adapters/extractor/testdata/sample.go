package sample

// Add returns the sum of two ints.
func Add(a, b int) int {
	return a + b
}

// Sum returns the sum of two ints, written the long way.
func Sum(x, y int) int {
	total := x + y
	return total
}

type counter struct {
	n int
}

func (c *counter) Inc() {
	c.n++
}
