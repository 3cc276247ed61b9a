package common

// Key codes delivered by window key callbacks. These match GLFW key codes, which
// use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	Key1     = 49 // naive lighting
	Key2     = 50 // forward+
	Key3     = 51 // clustered deferred
	KeyP     = 80 // toggle profiler
	KeySpace = 32 // pause light animation
	KeyMinus = 45 // halve the light count
	KeyEqual = 61 // double the light count
)
