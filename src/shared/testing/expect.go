package testing

import (
	"github.com/onsi/gomega"
)

func ExpectSuccess[T any](value T, err error) T {
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())
	return value
}

func ExpectType[T any](value any) T {
	t, ok := value.(T)
	gomega.ExpectWithOffset(1, ok).To(gomega.BeTrue())
	return t
}
