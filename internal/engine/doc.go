// Package engine реализует ядро обхода workflow: валидацию definition
// и последовательный handle-driven traversal графа для одного lead.
//
// Engine не знает про очереди, транспорт и хранилище — он принимает
// definition и snapshot lead, возвращает результат обхода с записями
// исполнения узлов. Персист и решения о retry лежат на вызывающем.
package engine
