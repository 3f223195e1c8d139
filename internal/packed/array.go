// Package packed содержит плотные хранилища целых чисел фиксированной ширины:
// битовый массив поверх 64-битных слов и массив полубайтов для освещения.
package packed

import "fmt"

const wordBits = 64

// Array хранит size значений шириной bits бит, упакованных подряд в 64-битные слова.
// Значения укладываются начиная с младших битов и могут пересекать границу слова.
type Array struct {
	words []uint64
	bits  int
	size  int
}

// NewArray создаёт обнулённый массив на size значений шириной bits
func NewArray(size, bits int) *Array {
	return &Array{
		words: make([]uint64, (size*bits+wordBits-1)/wordBits),
		bits:  bits,
		size:  size,
	}
}

// FromRaw оборачивает уже упакованные слова. Ёмкость выводится из количества слов.
// Слайс не копируется. Ширина должна быть в диапазоне 1..64.
func FromRaw(words []uint64, bits int) (*Array, error) {
	if bits < 1 || bits > wordBits {
		return nil, fmt.Errorf("packed: width %d out of range 1..%d", bits, wordBits)
	}
	return &Array{
		words: words,
		bits:  bits,
		size:  len(words) * wordBits / bits,
	}, nil
}

// Bits возвращает ширину одного значения в битах
func (a *Array) Bits() int {
	return a.bits
}

// Len возвращает количество значений
func (a *Array) Len() int {
	return a.size
}

// Words возвращает слова хранилища (без копирования)
func (a *Array) Words() []uint64 {
	return a.words
}

func (a *Array) mask() uint64 {
	// при bits == 64 сдвиг даёт 0, и маска становится ^0
	return uint64(1)<<uint(a.bits) - 1
}

// Get возвращает значение по индексу
func (a *Array) Get(i int) int {
	bit := i * a.bits
	pos := bit / wordBits
	off := uint(bit % wordBits)

	v := a.words[pos] >> off
	if off+uint(a.bits) > wordBits {
		v |= a.words[pos+1] << (wordBits - off)
	}
	return int(v & a.mask())
}

// Set записывает значение по индексу. Значение обрезается до ширины массива,
// проверка диапазона лежит на вызывающей стороне.
func (a *Array) Set(i int, value int) {
	bit := i * a.bits
	pos := bit / wordBits
	off := uint(bit % wordBits)
	mask := a.mask()
	v := uint64(value) & mask

	a.words[pos] = a.words[pos]&^(mask<<off) | v<<off
	if off+uint(a.bits) > wordBits {
		used := wordBits - off
		a.words[pos+1] = a.words[pos+1]&^(mask>>used) | v>>used
	}
}

// Resize возвращает новый массив той же длины с шириной bits,
// перекодировав в него все значения.
func (a *Array) Resize(bits int) *Array {
	n := NewArray(a.size, bits)
	for i := 0; i < a.size; i++ {
		n.Set(i, a.Get(i))
	}
	return n
}
