package packed

// NibbleArray хранит 4-битные значения, по два в байте.
// Чётный индекс занимает младший полубайт, нечётный - старший.
type NibbleArray struct {
	data []byte
	size int
}

// NewNibbleArray создаёт обнулённый массив на n значений
func NewNibbleArray(n int) *NibbleArray {
	return &NibbleArray{
		data: make([]byte, (n+1)/2),
		size: n,
	}
}

// Len возвращает количество значений
func (n *NibbleArray) Len() int {
	return n.size
}

// Bytes возвращает байты хранилища без копирования.
// Десериализатор читает сетевые данные прямо в этот слайс.
func (n *NibbleArray) Bytes() []byte {
	return n.data
}

// Get возвращает значение по индексу
func (n *NibbleArray) Get(i int) uint8 {
	b := n.data[i>>1]
	if i&1 == 1 {
		return b >> 4
	}
	return b & 0xF
}

// Set записывает младшие 4 бита value по индексу
func (n *NibbleArray) Set(i int, value uint8) {
	value &= 0xF
	idx := i >> 1
	if i&1 == 1 {
		n.data[idx] = n.data[idx]&0x0F | value<<4
	} else {
		n.data[idx] = n.data[idx]&0xF0 | value
	}
}

// Fill записывает value во все ячейки
func (n *NibbleArray) Fill(value uint8) {
	value &= 0xF
	b := value | value<<4
	for i := range n.data {
		n.data[i] = b
	}
}
