package builder

// Every device family the builder can plan for.
import (
	_ "omibyte.io/hwinit/lowering/dummy"
	_ "omibyte.io/hwinit/lowering/stm32f1xx"
	_ "omibyte.io/hwinit/lowering/tinygo"
)
