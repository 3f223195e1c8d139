package vec

// Vec2 представляет 2D координаты на горизонтальной плоскости.
// Y здесь соответствует мировой оси Z.
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует глобальные координаты в координаты колонки
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Y: v.Y >> 4} // Деление на 16
}

// LocalInChunk возвращает локальные координаты внутри колонки
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Y: v.Y & 0xF} // Модуль 16
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}
