package feed

import (
	"io/ioutil"

	"github.com/sirupsen/logrus"
)

const (
	issLine1 = "1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994"
	issLine2 = "2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533"

	cssLine1 = "1 48274U 21035A   25138.52301331  .00030528  00000+0  34466-3 0  9996"
	cssLine2 = "2 48274  41.4660 263.2290 0006105 317.3570  42.6740 15.60339360232196"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}
